package mid

import (
	"context"
	"net/http"
	"strings"

	"github.com/ardanlabs/blocksim/foundation/web"
)

// corsMethods are the methods the simulator api serves.
var corsMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodDelete,
	http.MethodOptions,
}

// Cors lets the viewer page and other browser clients served from the
// specified origin call the api.
func Cors(origin string) web.Middleware {
	methods := strings.Join(corsMethods, ", ")

	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", methods)
			w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Content-Type, Content-Length, Accept-Encoding")
			w.Header().Set("Access-Control-Max-Age", "86400")

			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
