package httpx

import (
	"net/http"
	"runtime/debug"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// RecoveryMiddleware turns a handler panic into a 500 envelope, unless the
// handler already started the response.
func RecoveryMiddleware(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sr, ok := w.(*statusRecorder)
			if !ok {
				sr = &statusRecorder{ResponseWriter: w}
			}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				level.Error(logger).Log(
					"msg", "panic recovered",
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", RequestIDFrom(r),
					"err", rec,
					"stack", string(debug.Stack()),
				)
				if sr.status == 0 {
					JSONError(sr, r, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", nil)
				}
			}()
			next.ServeHTTP(sr, r)
		})
	}
}
