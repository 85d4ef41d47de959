package httpapi

import (
	"net/http"

	"github.com/courtedge/courtedge/internal/platform/logging"
	"github.com/courtedge/courtedge/internal/platform/metrics"
)

func NewRouter(
	handler *Handler,
	logger *logging.Logger,
	corsAllowedOrigins []string,
	internalJobToken string,
) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handler.Health)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /v1/matchups", handler.ListMatchups)
	mux.HandleFunc("GET /v1/matchups/{id}", handler.GetMatchup)

	mux.Handle("POST /v1/internal/jobs/run-cycle",
		RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunCycle)))

	return RequestLogging(logger, CORS(corsAllowedOrigins, metrics.Middleware(recoverPanic(logger, mux))))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(r.Context(), "panic recovered", "panic", rec)
				writeInternalError(r.Context(), w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
