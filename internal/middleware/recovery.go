package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// NewRecoveryMiddleware はハンドラーのpanicを回収し、統一エラーフォーマットの500を返す。
// http.ErrAbortHandlerはnet/httpの接続中断処理に任せるため再送出する。
func NewRecoveryMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}

				logger.LogAttrs(r.Context(), slog.LevelError, "handler panic",
					slog.Any("panic", v),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", RequestIDFromContext(r.Context())),
					slog.String("stack", string(debug.Stack())),
				)
				WriteInternalServerError(w, r, "internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
