// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/blocksim/app/services/simulator/handlers/v1/nodegrp"
	"github.com/ardanlabs/blocksim/business/core/world"
	"github.com/ardanlabs/blocksim/foundation/events"
	"github.com/ardanlabs/blocksim/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	World *world.World
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	ngh := nodegrp.Handlers{
		Log:   cfg.Log,
		World: cfg.World,
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", ngh.Events)
	app.Handle(http.MethodGet, version, "/nodes", ngh.List)
	app.Handle(http.MethodPost, version, "/nodes", ngh.Create)
	app.Handle(http.MethodGet, version, "/nodes/:node", ngh.QueryByAddress)
	app.Handle(http.MethodDelete, version, "/nodes/:node", ngh.Delete)
	app.Handle(http.MethodGet, version, "/nodes/:node/chain", ngh.Chain)
	app.Handle(http.MethodGet, version, "/nodes/:node/blocks/:hash", ngh.BlockByHash)
	app.Handle(http.MethodGet, version, "/nodes/:node/blocks/:hash/proof/:tx", ngh.TxProof)
	app.Handle(http.MethodGet, version, "/nodes/:node/mempool", ngh.Mempool)
	app.Handle(http.MethodGet, version, "/nodes/:node/balances/chain", ngh.ChainBalances)
	app.Handle(http.MethodGet, version, "/nodes/:node/balances/chain/:account", ngh.ChainBalances)
	app.Handle(http.MethodGet, version, "/nodes/:node/balances/mempool", ngh.MempoolBalances)
	app.Handle(http.MethodGet, version, "/nodes/:node/balances/mempool/:account", ngh.MempoolBalances)
	app.Handle(http.MethodPost, version, "/nodes/:node/tx/submit", ngh.SubmitTransaction)
}
