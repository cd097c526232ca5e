package middleware

import (
	"net/http"
	"time"

	"github.com/dimasfh/sociagram/pkg/logger"
)

func Logging(log logger.Log) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Infof("%s %s %s", r.Method, r.URL.Path, time.Since(start))
		})
	}
}
