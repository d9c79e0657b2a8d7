package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader はリクエストIDを受け渡すHTTPヘッダー名。
const RequestIDHeader = "X-Request-ID"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// requestIDContextKey はリクエストコンテキストにリクエストIDを格納するためのキー。
var requestIDContextKey = contextKey("request_id")

// NewRequestIDMiddleware はリクエストごとにIDを割り当てるミドルウェアを返す。
// 受信ヘッダーに有効なUUIDがあればそれを引き継ぎ、なければ新しいUUIDを生成する。
// IDはレスポンスヘッダーとリクエストコンテキストの両方に設定する。
func NewRequestIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(ContextWithRequestID(r.Context(), id)))
		})
	}
}

// ContextWithRequestID はリクエストIDを格納したコンテキストを返す。
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// RequestIDFromContext はコンテキストからリクエストIDを取得する。未設定の場合は空文字列を返す。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
