package server

import (
	"net/http"

	"github.com/ahmethakanbesel/price-service/internal/price"
)

// NewHandler creates the full HTTP handler with routes and middleware. When
// debug is true, server error responses include the underlying error and a
// stack trace.
// Exported for use in tests (e.g., httptest.NewServer).
func NewHandler(priceSvc *price.Service, debug bool) http.Handler {
	return newMux(priceSvc, debug)
}

func newMux(priceSvc *price.Service, debug bool) http.Handler {
	h := &handler{
		priceSvc: priceSvc,
		debug:    debug,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /api/prices", h.getPrices)
	mux.HandleFunc("GET /api/prices/latest", h.getLatest)

	// Apply middleware stack: recovery -> requestID -> logging -> cors
	var handler http.Handler = mux
	handler = cors(handler)
	handler = logging(handler)
	handler = requestID(handler)
	handler = recovery(handler)

	return handler
}
