// Package todo はTodo管理のドメインロジックを提供する。
package todo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/todoapp/internal/metrics"
	"github.com/hitoshi/todoapp/internal/model"
	"github.com/hitoshi/todoapp/internal/repository"
)

// 操作名。メトリクスのoperationラベルに使う。
const (
	OpCreate       = "create"
	OpUpdateTitle  = "update_title"
	OpToggleStatus = "toggle_status"
	OpFind         = "find"
	OpFindAll      = "find_all"
	OpDelete       = "delete"
)

// Service はTodo管理のサービス層。
// 存在確認とトランザクション境界を担当する。
// 更新系操作はそれぞれ1つのトランザクションで実行し、参照系は読み取り専用トランザクションで実行する。
type Service struct {
	tx       repository.TxRunner
	recorder metrics.OperationRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// recorderがnilの場合はメトリクスを記録しない。
func NewService(tx repository.TxRunner, recorder metrics.OperationRecorder) *Service {
	return &Service{tx: tx, recorder: recorder}
}

// CreateTodo は未完了のTodoを作成し、IDと日時が割り当てられた状態で返す。
func (s *Service) CreateTodo(ctx context.Context, title string) (*model.Todo, error) {
	todo, err := model.NewTodo(title)
	if err != nil {
		s.record(OpCreate, err)
		return nil, err
	}

	err = s.tx.WithinTx(ctx, nil, func(repo repository.TodoRepository) error {
		return repo.Save(ctx, todo)
	})
	s.record(OpCreate, err)
	if err != nil {
		return nil, wrapStoreError("Todoの作成に失敗しました", err)
	}

	slog.Info("todo created", slog.Int64("todo_id", todo.ID()))
	return todo, nil
}

// UpdateTodoTitle は指定IDのTodoのタイトルを変更する。
func (s *Service) UpdateTodoTitle(ctx context.Context, id int64, newTitle string) (*model.Todo, error) {
	todo, err := s.mutate(ctx, id, func(todo *model.Todo) error {
		return todo.ChangeTitle(newTitle)
	})
	s.record(OpUpdateTitle, err)
	if err != nil {
		return nil, wrapStoreError("Todoのタイトル変更に失敗しました", err)
	}

	slog.Info("todo title updated", slog.Int64("todo_id", id))
	return todo, nil
}

// ToggleTodoStatus は指定IDのTodoの完了フラグをdoneに設定する。
// 現在値の反転ではなく、指定値をそのまま設定する。
func (s *Service) ToggleTodoStatus(ctx context.Context, id int64, done bool) (*model.Todo, error) {
	todo, err := s.mutate(ctx, id, func(todo *model.Todo) error {
		todo.SetDone(done)
		return nil
	})
	s.record(OpToggleStatus, err)
	if err != nil {
		return nil, wrapStoreError("Todoの状態変更に失敗しました", err)
	}

	slog.Info("todo status updated",
		slog.Int64("todo_id", id),
		slog.Bool("done", done),
	)
	return todo, nil
}

// FindTodoByID は指定IDのTodoを返す。存在しない場合はNotFoundErrorを返す。
func (s *Service) FindTodoByID(ctx context.Context, id int64) (*model.Todo, error) {
	var todo *model.Todo
	err := s.tx.WithinTx(ctx, repository.ReadOnly, func(repo repository.TodoRepository) error {
		var err error
		todo, err = findExisting(ctx, repo, id)
		return err
	})
	s.record(OpFind, err)
	if err != nil {
		return nil, wrapStoreError("Todoの取得に失敗しました", err)
	}
	return todo, nil
}

// FindAllTodos は全Todoをid昇順（作成順）で返す。
func (s *Service) FindAllTodos(ctx context.Context) ([]*model.Todo, error) {
	var todos []*model.Todo
	err := s.tx.WithinTx(ctx, repository.ReadOnly, func(repo repository.TodoRepository) error {
		var err error
		todos, err = repo.FindAll(ctx)
		return err
	})
	s.record(OpFindAll, err)
	if err != nil {
		return nil, wrapStoreError("Todo一覧の取得に失敗しました", err)
	}
	if todos == nil {
		todos = []*model.Todo{}
	}
	return todos, nil
}

// DeleteTodo は指定IDのTodoを物理削除する。
func (s *Service) DeleteTodo(ctx context.Context, id int64) error {
	err := s.tx.WithinTx(ctx, nil, func(repo repository.TodoRepository) error {
		todo, err := findExisting(ctx, repo, id)
		if err != nil {
			return err
		}
		return repo.Delete(ctx, todo)
	})
	s.record(OpDelete, err)
	if err != nil {
		return wrapStoreError("Todoの削除に失敗しました", err)
	}

	slog.Info("todo deleted", slog.Int64("todo_id", id))
	return nil
}

// mutate は1つのトランザクション内でTodoを読み込み、applyで変更して保存する。
func (s *Service) mutate(ctx context.Context, id int64, apply func(*model.Todo) error) (*model.Todo, error) {
	var todo *model.Todo
	err := s.tx.WithinTx(ctx, nil, func(repo repository.TodoRepository) error {
		var err error
		todo, err = findExisting(ctx, repo, id)
		if err != nil {
			return err
		}
		if err := apply(todo); err != nil {
			return err
		}
		return repo.Save(ctx, todo)
	})
	if err != nil {
		return nil, err
	}
	return todo, nil
}

// findExisting はTodoを取得し、存在しなければNotFoundErrorを返す。
func findExisting(ctx context.Context, repo repository.TodoRepository, id int64) (*model.Todo, error) {
	todo, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if todo == nil {
		return nil, model.NewTodoNotFoundError(id)
	}
	return todo, nil
}

// wrapStoreError はドメインエラーをそのまま返し、それ以外のエラーに文脈を付与する。
func wrapStoreError(msg string, err error) error {
	if isDomainError(err) {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func isDomainError(err error) bool {
	var vErr *model.ValidationError
	var nfErr *model.NotFoundError
	return errors.As(err, &vErr) || errors.As(err, &nfErr)
}

// record は操作結果をメトリクスに記録する。
func (s *Service) record(operation string, err error) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordOperation(operation, resultLabel(err))
}

func resultLabel(err error) string {
	var vErr *model.ValidationError
	var nfErr *model.NotFoundError
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.As(err, &nfErr):
		return metrics.ResultNotFound
	case errors.As(err, &vErr):
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}
