package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/todoapp/internal/metrics"
)

// unmatchedRoute はどのルートにもマッチしなかったリクエストのラベル。
const unmatchedRoute = "unmatched"

// NewMetricsMiddleware はHTTPリクエストの件数とレイテンシを記録するミドルウェアを返す。
// ラベルにはパスではなくchiのルートパターン（例: /todos/{id}）を使い、系列数を抑える。
func NewMetricsMiddleware(recorder metrics.HTTPRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			route := unmatchedRoute
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			recorder.RecordHTTPRequest(r.Method, route, rec.statusCode, time.Since(start))
		})
	}
}
