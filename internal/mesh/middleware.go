package mesh

import (
	"net/http"

	"github.com/signalsfoundry/solarmesh-simulator/internal/logging"
)

const requestIDHeader = "X-Request-Id"

// RequestIDMiddleware sources the request id from the X-Request-Id
// header when the client supplies one and generates one otherwise,
// then stores a logger annotated with the id and route on the context.
// The id is echoed back so clients can correlate responses.
func RequestIDMiddleware(base logging.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = logging.Noop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := r.Header.Get(requestIDHeader); id != "" {
				ctx = logging.ContextWithRequestID(ctx, id)
			}
			ctx, reqLog := logging.WithRequestLogger(ctx, base.With(
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
			))
			ctx = logging.ContextWithLogger(ctx, reqLog)
			w.Header().Set(requestIDHeader, logging.RequestIDFromContext(ctx))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
