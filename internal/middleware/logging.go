package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードと書き込みバイト数を記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	bytes      int
	written    bool
}

// newStatusRecorder はwをラップする。既にラップ済みの場合はそのまま返し、
// ロギングとメトリクスで同じ記録を共有する。
func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	if sr, ok := w.(*statusRecorder); ok {
		return sr
	}
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はWriteHeaderが未呼び出しなら暗黙の200として記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	sr.written = true
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// Unwrap はhttp.ResponseControllerのために元のResponseWriterを返す。
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// NewLoggingMiddleware はリクエストごとに "http_request" のJSON構造化ログを出力するミドルウェアを返す。
// 4xxはWARN、5xxはERRORで出力する。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Int("bytes", rec.bytes),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
				slog.String("remote_ip", clientIPFromRequest(r)),
			}
			if requestID := RequestIDFromContext(r.Context()); requestID != "" {
				attrs = append(attrs, slog.String("request_id", requestID))
			}

			logger.LogAttrs(r.Context(), levelForStatus(rec.statusCode), "http_request", attrs...)
		})
	}
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
