package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/maumercado/nntp-queue/internal/logger"
	"github.com/maumercado/nntp-queue/internal/metrics"
)

// RequestLogger returns a middleware that logs each request and
// records it in metrics.RecordHTTPRequest. It wraps the response in
// chi's status/byte-count recorder so the log line and the metric both
// see the real status code.
func RequestLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", elapsed).
				Str("remote_addr", r.RemoteAddr).
				Msg("http request")

			metrics.RecordHTTPRequest(r.Method, r.URL.Path, strconv.Itoa(status), elapsed.Seconds())
		})
	}
}
