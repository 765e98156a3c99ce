package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/cimillas/order-ledger/internal/logging"
	"go.uber.org/zap"
)

// HealthHandler reports basic liveness for the service.
func HealthHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(stdhttp.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyHandler reports whether the database answers within two seconds.
func ReadyHandler(db Pinger) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			logging.Logger(r.Context()).Warn("readiness check failed", zap.Error(err))
			writeError(w, stdhttp.StatusServiceUnavailable, codeTemporarilyUnavailable, "database unavailable")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(stdhttp.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}
