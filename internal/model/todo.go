// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// TitleMaxLength はタイトルの最大文字数（Unicodeコードポイント単位）。
const TitleMaxLength = 200

// timestampPrecision はPostgreSQLのtimestamptzの精度。
// メモリ上の値と永続化後の値を一致させるために切り捨てに使う。
const timestampPrecision = time.Microsecond

// Todo はTodo項目を表すエンティティ。
// フィールドは非公開とし、変更は ChangeTitle と SetDone のみで行う。
type Todo struct {
	id        int64
	title     string
	done      bool
	createdAt time.Time
	updatedAt time.Time
}

// NewTodo は未完了状態の新しいTodoを生成する。
// タイトルが空白のみ、または200文字を超える場合はValidationErrorを返す。
func NewTodo(title string) (*Todo, error) {
	return NewTodoWithDone(title, false)
}

// NewTodoWithDone は完了状態を指定して新しいTodoを生成する。
func NewTodoWithDone(title string, done bool) (*Todo, error) {
	if err := ValidateTitle(title); err != nil {
		return nil, err
	}
	return &Todo{title: title, done: done}, nil
}

// RestoreTodo は永続化済みの値からTodoを復元する。
// 永続化ゲートウェイ専用で、バリデーションは行わない。
func RestoreTodo(id int64, title string, done bool, createdAt, updatedAt time.Time) *Todo {
	return &Todo{
		id:        id,
		title:     title,
		done:      done,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID はストアが割り当てた識別子を返す。未永続化の場合は0。
func (t *Todo) ID() int64 { return t.id }

// Title はタイトルを返す。
func (t *Todo) Title() string { return t.title }

// Done は完了フラグを返す。
func (t *Todo) Done() bool { return t.done }

// CreatedAt は作成日時を返す。
func (t *Todo) CreatedAt() time.Time { return t.createdAt }

// UpdatedAt は最終更新日時を返す。
func (t *Todo) UpdatedAt() time.Time { return t.updatedAt }

// IsPersisted はストアにより識別子が割り当て済みかどうかを返す。
func (t *Todo) IsPersisted() bool { return t.id != 0 }

// ChangeTitle はタイトルを変更する。
// 不正なタイトルの場合は状態を変更せずValidationErrorを返す。
func (t *Todo) ChangeTitle(title string) error {
	if err := ValidateTitle(title); err != nil {
		return err
	}
	t.title = title
	return nil
}

// SetDone は完了フラグを指定値に設定する。反転ではない。
func (t *Todo) SetDone(done bool) {
	t.done = done
}

// PrePersist は挿入前に永続化ゲートウェイから呼ばれ、作成日時と更新日時を設定する。
func (t *Todo) PrePersist(now time.Time) {
	now = now.Truncate(timestampPrecision)
	t.createdAt = now
	t.updatedAt = now
}

// PreUpdate は更新前に永続化ゲートウェイから呼ばれ、更新日時を設定する。
// createdAt <= updatedAt を保つため、時計が巻き戻った場合はcreatedAtに揃える。
func (t *Todo) PreUpdate(now time.Time) {
	now = now.Truncate(timestampPrecision)
	if now.Before(t.createdAt) {
		now = t.createdAt
	}
	t.updatedAt = now
}

// ValidateTitle はタイトルの制約（空白のみ不可、200文字以内）を検証する。
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return NewTitleBlankError()
	}
	if utf8.RuneCountInString(title) > TitleMaxLength {
		return NewTitleTooLongError(TitleMaxLength)
	}
	return nil
}
