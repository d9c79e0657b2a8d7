package model

import "fmt"

// ValidationError はエンティティの制約違反を表す。
type ValidationError struct {
	Field   string // 違反したフィールド名
	Message string // ユーザー向けメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError は指定IDのTodoが存在しないことを表す。
type NotFoundError struct {
	ID int64
}

// Error はerrorインターフェースを実装する。
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("存在しないTodoです: id=%d", e.ID)
}

// NewTitleBlankError はタイトル未入力エラーを生成する。
func NewTitleBlankError() *ValidationError {
	return &ValidationError{
		Field:   "title",
		Message: "タイトルは空にできません。",
	}
}

// NewTitleTooLongError はタイトル文字数超過エラーを生成する。
func NewTitleTooLongError(max int) *ValidationError {
	return &ValidationError{
		Field:   "title",
		Message: fmt.Sprintf("タイトルは%d文字以内で入力してください。", max),
	}
}

// NewInvalidParameterError はリクエストパラメータ不正エラーを生成する。
func NewInvalidParameterError(name, value string) *ValidationError {
	return &ValidationError{
		Field:   name,
		Message: fmt.Sprintf("パラメータ %s の値が不正です: %q", name, value),
	}
}

// NewMissingParameterError は必須パラメータ欠落エラーを生成する。
func NewMissingParameterError(name string) *ValidationError {
	return &ValidationError{
		Field:   name,
		Message: fmt.Sprintf("必須パラメータ %s が指定されていません。", name),
	}
}

// NewTodoNotFoundError はTodo未検出エラーを生成する。
func NewTodoNotFoundError(id int64) *NotFoundError {
	return &NotFoundError{ID: id}
}
