// Package viewer serves the page that renders the events of the nodes live.
package viewer

import (
	"context"
	_ "embed"
	"net/http"
)

//go:embed assets/index.html
var index []byte

// Index writes the viewer page. The page connects to the events websocket
// of the same host.
func Index(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(index); err != nil {
		return err
	}

	return nil
}
