package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/todoapp/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PostgreSQLのSQLSTATE。
const (
	sqlStateStringTooLong   = "22001"
	sqlStateCheckViolation  = "23514"
	sqlStateNotNullViolated = "23502"
)

// PostgresTodoRepo はPostgreSQLを使用したTodoリポジトリ。
// Querierには*sql.DBまたはトランザクション中の*sql.Txを渡す。
type PostgresTodoRepo struct {
	db  Querier
	now func() time.Time
}

// NewPostgresTodoRepo はPostgresTodoRepoを生成する。
// nowがnilの場合はtime.Nowを使用する。
func NewPostgresTodoRepo(db Querier, now func() time.Time) *PostgresTodoRepo {
	if now == nil {
		now = time.Now
	}
	return &PostgresTodoRepo{db: db, now: now}
}

// Save はTodoを保存する。IDが未割り当てならINSERT、割り当て済みならUPDATEを実行する。
func (r *PostgresTodoRepo) Save(ctx context.Context, todo *model.Todo) error {
	if !todo.IsPersisted() {
		return r.insert(ctx, todo)
	}
	return r.update(ctx, todo)
}

func (r *PostgresTodoRepo) insert(ctx context.Context, todo *model.Todo) error {
	todo.PrePersist(r.now())

	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO todos (title, done, created_at, updated_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		todo.Title(), todo.Done(), todo.CreatedAt(), todo.UpdatedAt(),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("Todoの作成に失敗しました: %w", classifyPgError(err))
	}

	*todo = *model.RestoreTodo(id, todo.Title(), todo.Done(), todo.CreatedAt(), todo.UpdatedAt())
	return nil
}

func (r *PostgresTodoRepo) update(ctx context.Context, todo *model.Todo) error {
	todo.PreUpdate(r.now())

	// created_atは更新対象に含めない
	result, err := r.db.ExecContext(ctx,
		`UPDATE todos SET title = $2, done = $3, updated_at = $4
		 WHERE id = $1`,
		todo.ID(), todo.Title(), todo.Done(), todo.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("Todoの更新に失敗しました: %w", classifyPgError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewTodoNotFoundError(todo.ID())
	}
	return nil
}

// FindByID は指定IDのTodoを取得する。見つからない場合はnilを返す。
func (r *PostgresTodoRepo) FindByID(ctx context.Context, id int64) (*model.Todo, error) {
	todo, err := scanTodo(r.db.QueryRowContext(ctx,
		`SELECT id, title, done, created_at, updated_at
		 FROM todos WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Todoの取得に失敗しました: %w", err)
	}
	return todo, nil
}

// FindAll は全Todoをid昇順で返す。0件の場合は空スライスを返す。
func (r *PostgresTodoRepo) FindAll(ctx context.Context) ([]*model.Todo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, done, created_at, updated_at
		 FROM todos ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("Todo一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	todos := make([]*model.Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("Todo一覧の読み取りに失敗しました: %w", err)
		}
		todos = append(todos, todo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Todo一覧の走査に失敗しました: %w", err)
	}

	return todos, nil
}

// Delete はTodoを物理削除する。
func (r *PostgresTodoRepo) Delete(ctx context.Context, todo *model.Todo) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM todos WHERE id = $1`,
		todo.ID(),
	)
	if err != nil {
		return fmt.Errorf("Todoの削除に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewTodoNotFoundError(todo.ID())
	}
	return nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (*model.Todo, error) {
	var (
		id                   int64
		title                string
		done                 bool
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &title, &done, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return model.RestoreTodo(id, title, done, createdAt, updatedAt), nil
}

// classifyPgError はテーブル制約違反をValidationErrorに変換する。
// lib/pqとpgxのどちらのドライバのエラーも扱う。
func classifyPgError(err error) error {
	var code string

	var pqErr *pq.Error
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pqErr):
		code = string(pqErr.Code)
	case errors.As(err, &pgErr):
		code = pgErr.Code
	default:
		return err
	}

	switch code {
	case sqlStateStringTooLong:
		return model.NewTitleTooLongError(model.TitleMaxLength)
	case sqlStateCheckViolation, sqlStateNotNullViolated:
		return model.NewTitleBlankError()
	default:
		return err
	}
}

// compile-time interface check
var _ TodoRepository = (*PostgresTodoRepo)(nil)
