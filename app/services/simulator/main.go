package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/blocksim/app/services/simulator/handlers"
	"github.com/ardanlabs/blocksim/business/core/world"
	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/genesis"
	"github.com/ardanlabs/blocksim/foundation/events"
	"github.com/ardanlabs/blocksim/foundation/logger"
	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("SIMULATOR")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
		}
		Sim struct {
			GenesisPath  string        `conf:"default:zblock/genesis.json"`
			Nodes        int           `conf:"default:3"`
			SeenWindow   int           `conf:"default:10000"`
			SyncInterval time.Duration `conf:"default:10s"`
			DisableMine  bool          `conf:"default:false"`
			Demo         bool          `conf:"default:false"`
			DemoInterval time.Duration `conf:"default:500ms"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "proof of work ledger simulation",
		},
	}

	const prefix = "SIMULATOR"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Blockchain Support

	gen, err := genesis.Load(cfg.Sim.GenesisPath)
	switch {
	case errors.Is(err, genesis.ErrInvalidGenesis):
		return fmt.Errorf("loading genesis: %w", err)
	case err != nil:
		log.Infow("startup", "status", "genesis file not loaded, using defaults", "path", cfg.Sim.GenesisPath, "ERROR", err)
		gen = genesis.Default()
	}
	log.Infow("startup", "status", "genesis", "difficulty", gen.Difficulty, "reward", gen.MiningReward, "transPerBlock", gen.TransPerBlock)

	// The blockchain packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(node database.Address, v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "node", node, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	w := world.New(world.Config{
		Genesis:      gen,
		SeenWindow:   cfg.Sim.SeenWindow,
		SyncInterval: cfg.Sim.SyncInterval,
		DisableMine:  cfg.Sim.DisableMine,
		EvHandler:    ev,
	})
	defer w.Shutdown()

	for range cfg.Sim.Nodes {
		addr, err := w.AddNode()
		if err != nil {
			return fmt.Errorf("adding node: %w", err)
		}
		log.Infow("startup", "status", "node started", "node", addr)
	}

	// The demo generates random transactions until shutdown.
	demoCtx, demoCancel := context.WithCancel(context.Background())
	defer demoCancel()

	if cfg.Sim.Demo {
		log.Infow("startup", "status", "demo traffic started", "interval", cfg.Sim.DemoInterval)
		go w.RunDemo(demoCtx, cfg.Sim.DemoInterval)
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	debugMux := handlers.DebugMux(build, log, w)

	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		World:    w,
		Evts:     evts,
	})

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Stop generating traffic before the nodes go away.
		demoCancel()

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
