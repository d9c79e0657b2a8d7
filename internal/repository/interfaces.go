// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/todoapp/internal/model"
)

// TodoRepository はTodoデータの永続化インターフェース。
type TodoRepository interface {
	// Save はTodoを保存する。IDが未割り当てなら挿入、割り当て済みなら更新する。
	// 挿入前にPrePersist、更新前にPreUpdateを呼び出し、保存後の値をtodoに反映する。
	Save(ctx context.Context, todo *model.Todo) error

	// FindByID は指定IDのTodoを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Todo, error)

	// FindAll は全Todoをid昇順（挿入順）で返す。
	FindAll(ctx context.Context) ([]*model.Todo, error)

	// Delete はTodoを物理削除する。
	Delete(ctx context.Context, todo *model.Todo) error
}

// TxRunner はトランザクション境界を提供するインターフェース。
// fnがnilを返せばコミット、エラーを返すかpanicした場合はロールバックする。
type TxRunner interface {
	WithinTx(ctx context.Context, opts *sql.TxOptions, fn func(repo TodoRepository) error) error
}

// Pinger はストアの疎通確認インターフェース。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Querier はSQL実行を抽象化するインターフェース。
// *sql.DB と *sql.Tx の両方を受け付ける。
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// ReadOnly は読み取り専用トランザクションのオプション。
var ReadOnly = &sql.TxOptions{ReadOnly: true}
