// Package handlers builds the public and debug muxes of the simulator.
package handlers

import (
	"context"
	"expvar"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/ardanlabs/blocksim/app/services/simulator/handlers/debug/checkgrp"
	v1 "github.com/ardanlabs/blocksim/app/services/simulator/handlers/v1"
	"github.com/ardanlabs/blocksim/app/services/simulator/handlers/viewer"
	"github.com/ardanlabs/blocksim/business/core/world"
	"github.com/ardanlabs/blocksim/business/web/mid"
	"github.com/ardanlabs/blocksim/foundation/events"
	"github.com/ardanlabs/blocksim/foundation/web"
	"go.uber.org/zap"
)

// MuxConfig contains the systems every public handler needs.
type MuxConfig struct {
	Shutdown chan os.Signal
	Log      *zap.SugaredLogger
	World    *world.World
	Evts     *events.Events
}

// PublicMux constructs the viewer page and the v1 api.
func PublicMux(cfg MuxConfig) http.Handler {
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Metrics(),
		mid.Cors("*"),
		mid.Panics(),
	)

	// Preflight requests only need the headers set by mid.Cors.
	preflight := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return nil
	}
	app.Handle(http.MethodOptions, "", "/*", preflight)

	app.Handle(http.MethodGet, "", "/", viewer.Index)

	// Load the v1 routes.
	v1.PublicRoutes(app, v1.Config{
		Log:   cfg.Log,
		World: cfg.World,
		Evts:  cfg.Evts,
	})

	return app
}

// DebugStandardLibraryMux registers the pprof and expvar routes on a new mux
// instead of http.DefaultServeMux, so imported packages can't add routes.
func DebugStandardLibraryMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	return mux
}

// DebugMux adds the readiness and liveness checks of the simulator to the
// standard library debug routes.
func DebugMux(build string, log *zap.SugaredLogger, w *world.World) http.Handler {
	mux := DebugStandardLibraryMux()

	cgh := checkgrp.Handlers{
		Build: build,
		Log:   log,
		World: w,
	}
	mux.HandleFunc("/debug/readiness", cgh.Readiness)
	mux.HandleFunc("/debug/liveness", cgh.Liveness)

	return mux
}
