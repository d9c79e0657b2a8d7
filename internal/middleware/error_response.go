// Package middleware はHTTPミドルウェアとエラーレスポンスの共通処理を提供する。
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	Status  int    `json:"status"`  // HTTPステータスコード
	Error   string `json:"error"`   // ステータスの分類名（例: "Internal Server Error"）
	Message string `json:"message"` // 失敗のメッセージ（加工しない）
	Path    string `json:"path"`    // リクエストパス
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponseBody{
		Status:  statusCode,
		Error:   http.StatusText(statusCode),
		Message: message,
		Path:    r.URL.Path,
	}); err != nil {
		slog.Error("failed to write error response", slog.String("error", err.Error()))
	}
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
func WriteInternalServerError(w http.ResponseWriter, r *http.Request, message string) {
	WriteErrorResponse(w, r, http.StatusInternalServerError, message)
}
