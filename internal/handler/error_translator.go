package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/todoapp/internal/middleware"
	"github.com/hitoshi/todoapp/internal/model"
)

// ステータスコードの割り当て方式。
const (
	// StatusMappingInternal はすべての失敗を500として返す。
	StatusMappingInternal = "internal"
	// StatusMappingDistinct は入力不正を400、未検出を404、それ以外を500として返す。
	StatusMappingDistinct = "distinct"
)

// ErrorTranslator はハンドラーに到達したエラーを統一エラーフォーマットに変換する。
type ErrorTranslator struct {
	distinct bool
	logger   *slog.Logger
}

// NewErrorTranslator はErrorTranslatorを生成する。
// 未知のmappingはStatusMappingInternalとして扱う。loggerがnilならslog.Default()を使う。
func NewErrorTranslator(mapping string, logger *slog.Logger) *ErrorTranslator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorTranslator{
		distinct: mapping == StatusMappingDistinct,
		logger:   logger,
	}
}

// routeError はどのハンドラーにも到達しなかったリクエストの失敗。
// statusはdistinct方式でのみ使われる。
type routeError struct {
	status  int
	message string
}

func (e *routeError) Error() string { return e.message }

func newRouteNotFoundError(r *http.Request) error {
	return &routeError{
		status:  http.StatusNotFound,
		message: "no handler for " + r.Method + " " + r.URL.Path,
	}
}

func newMethodNotAllowedError(r *http.Request) error {
	return &routeError{
		status:  http.StatusMethodNotAllowed,
		message: "method " + r.Method + " is not supported for " + r.URL.Path,
	}
}

// NotFound はchiの未登録ルート用ハンドラー。
func (t *ErrorTranslator) NotFound(w http.ResponseWriter, r *http.Request) {
	t.Write(w, r, newRouteNotFoundError(r))
}

// MethodNotAllowed はchiのメソッド不一致用ハンドラー。
func (t *ErrorTranslator) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	t.Write(w, r, newMethodNotAllowedError(r))
}

// Write はエラーを統一エラーフォーマットで書き込む。messageはエラーメッセージをそのまま使う。
func (t *ErrorTranslator) Write(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := t.StatusCode(err)

	if statusCode >= http.StatusInternalServerError {
		t.logger.LogAttrs(r.Context(), slog.LevelError, "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
	}

	middleware.WriteErrorResponse(w, r, statusCode, err.Error())
}

// StatusCode はエラーに対応するHTTPステータスコードを返す。
func (t *ErrorTranslator) StatusCode(err error) int {
	if !t.distinct {
		return http.StatusInternalServerError
	}

	var vErr *model.ValidationError
	var nfErr *model.NotFoundError
	var rErr *routeError
	switch {
	case errors.As(err, &rErr):
		return rErr.status
	case errors.As(err, &nfErr):
		return http.StatusNotFound
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
