package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresTxRunner は*sql.DBのトランザクションでTodoRepositoryを提供する。
type PostgresTxRunner struct {
	db  TxBeginner
	now func() time.Time
}

// NewPostgresTxRunner はPostgresTxRunnerを生成する。
func NewPostgresTxRunner(db TxBeginner, now func() time.Time) *PostgresTxRunner {
	return &PostgresTxRunner{db: db, now: now}
}

// WithinTx はトランザクションを開始し、そのトランザクションに束縛したリポジトリでfnを実行する。
// fnがエラーを返した場合はロールバックし、そのエラーをそのまま返す。
func (r *PostgresTxRunner) WithinTx(ctx context.Context, opts *sql.TxOptions, fn func(repo TodoRepository) error) error {
	tx, err := r.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// コミット後のRollbackはsql.ErrTxDoneを返すだけで無害
	defer tx.Rollback()

	if err := fn(NewPostgresTodoRepo(tx, r.now)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TxRunner = (*PostgresTxRunner)(nil)
