package rest

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// observe logs and times every request handled by next.
func (r *Resource) observe(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, req)

		elapsed := time.Since(start)
		r.metrics.ObserveREST(req.Method, rec.status, elapsed)

		fields := []zap.Field{
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", elapsed),
		}
		if rec.status >= http.StatusInternalServerError {
			r.log.Error("REST request failed", fields...)
			return
		}
		r.log.Info("REST request completed", fields...)
	})
}
