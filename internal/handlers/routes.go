package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// NewRouter mounts the prediction route. CORS applies to /predict only;
// request logging sits outside recovery so panicking requests are logged too.
func NewRouter(h *Handler, logger *zap.Logger, allowOrigin string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/predict", CORS(allowOrigin)(http.HandlerFunc(h.Predict)))

	return Chain(mux,
		RequestLogger(logger),
		Recovery(logger),
	)
}
