package middleware

import (
	"net/http"
	"time"

	"github.com/unionportal/internal/logger"
)

// RequestLog логирует HTTP-запросы асинхронно: метод, путь, статус, длительность.
// Ошибки 5xx и медленные запросы видны при LOG_LEVEL=info, остальные — при debug.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrap := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrap, r)

		elapsed := time.Since(start)
		switch {
		case wrap.status >= http.StatusInternalServerError:
			logger.Errorf("http %s %s status=%d duration_ms=%d", r.Method, r.URL.Path, wrap.status, elapsed.Milliseconds())
		case elapsed >= 100*time.Millisecond:
			logger.Infof("http %s %s status=%d duration_ms=%d", r.Method, r.URL.Path, wrap.status, elapsed.Milliseconds())
		default:
			logger.Debugf("http %s %s status=%d duration_ms=%d", r.Method, r.URL.Path, wrap.status, elapsed.Milliseconds())
		}
	})
}
