package server

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/ahmethakanbesel/price-service/internal/apperror"
	"github.com/ahmethakanbesel/price-service/internal/price"
)

const serverErrorMessage = "Server Error"

type handler struct {
	priceSvc *price.Service
	debug    bool
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) getPrices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := price.NewGetPricesRequest(q.Get("period"), q.Get("start"), q.Get("end"))

	samples, err := h.priceSvc.GetPrices(r.Context(), req)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, samples)
}

func (h *handler) getLatest(w http.ResponseWriter, r *http.Request) {
	s, err := h.priceSvc.Latest(r.Context())
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s)
}

// writeFailure maps err to a status and error body. Server errors carry a
// generic message; the underlying error and stack are only included in debug
// mode.
func (h *handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	public := "internal server error"
	if ae, ok := apperror.As(err); ok {
		status = ae.HTTPStatus()
		public = ae.Message()
	}

	if status < http.StatusInternalServerError {
		writeError(w, status, ErrorResponse{Message: public, Details: public})
		return
	}

	slog.Error("request failed", //nolint:gosec // structured logging, values are not interpolated into format string
		"method", r.Method,
		"path", r.URL.Path,
		"requestID", r.Context().Value(requestIDKey),
		"error", err,
	)

	body := ErrorResponse{Message: serverErrorMessage, Details: public}
	if h.debug {
		body.Details = err.Error()
		body.Stack = string(debug.Stack())
	}
	writeError(w, status, body)
}
