package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/todoapp/internal/model"
)

// errReadOnlyTx は読み取り専用トランザクションで書き込みを行った場合のエラー。
var errReadOnlyTx = errors.New("cannot write in a read-only transaction")

// todoRow はメモリストア上の1行。
type todoRow struct {
	id        int64
	title     string
	done      bool
	createdAt time.Time
	updatedAt time.Time
}

func (row todoRow) toModel() *model.Todo {
	return model.RestoreTodo(row.id, row.title, row.done, row.createdAt, row.updatedAt)
}

// MemoryTodoStore はプロセス内でTodoを保持するストア。
// PostgreSQLなしでのローカル起動とテストに使う。
//
// 書き込みトランザクションは直列化され、スナップショットに対して変更を行い
// コミット時にのみ反映する。読み取り専用トランザクションは書き込みを待たない。
// IDシーケンスはPostgreSQLと同様にロールバックされない。
type MemoryTodoStore struct {
	writeMu sync.Mutex // 書き込みトランザクションの直列化

	mu   sync.RWMutex
	rows map[int64]todoRow
	seq  int64

	now func() time.Time
}

// NewMemoryTodoStore はMemoryTodoStoreを生成する。
// nowがnilの場合はtime.Nowを使用する。
func NewMemoryTodoStore(now func() time.Time) *MemoryTodoStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryTodoStore{
		rows: make(map[int64]todoRow),
		now:  now,
	}
}

// PingContext は常に成功する。
func (s *MemoryTodoStore) PingContext(ctx context.Context) error {
	return ctx.Err()
}

// WithinTx はスナップショット上でfnを実行し、成功時のみ変更を反映する。
func (s *MemoryTodoStore) WithinTx(ctx context.Context, opts *sql.TxOptions, fn func(repo TodoRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	readOnly := opts != nil && opts.ReadOnly
	if !readOnly {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
	}

	tx := &memoryTodoTx{
		store:    s,
		rows:     s.snapshot(),
		readOnly: readOnly,
	}

	if err := fn(tx); err != nil {
		return err
	}
	if readOnly {
		return nil
	}

	s.mu.Lock()
	s.rows = tx.rows
	s.mu.Unlock()
	return nil
}

// Len は保持しているTodoの件数を返す。
func (s *MemoryTodoStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *MemoryTodoStore) snapshot() map[int64]todoRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make(map[int64]todoRow, len(s.rows))
	for id, row := range s.rows {
		rows[id] = row
	}
	return rows
}

func (s *MemoryTodoStore) nextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// memoryTodoTx はトランザクション中のスナップショットに束縛されたTodoRepository。
type memoryTodoTx struct {
	store    *MemoryTodoStore
	rows     map[int64]todoRow
	readOnly bool
}

// Save はスナップショットにTodoを挿入または更新する。
func (tx *memoryTodoTx) Save(ctx context.Context, todo *model.Todo) error {
	if tx.readOnly {
		return errReadOnlyTx
	}

	if !todo.IsPersisted() {
		todo.PrePersist(tx.store.now())
		id := tx.store.nextID()
		*todo = *model.RestoreTodo(id, todo.Title(), todo.Done(), todo.CreatedAt(), todo.UpdatedAt())
	} else {
		existing, ok := tx.rows[todo.ID()]
		if !ok {
			return model.NewTodoNotFoundError(todo.ID())
		}
		todo.PreUpdate(tx.store.now())
		// created_atは挿入時の値を維持する
		*todo = *model.RestoreTodo(todo.ID(), todo.Title(), todo.Done(), existing.createdAt, todo.UpdatedAt())
	}

	tx.rows[todo.ID()] = todoRow{
		id:        todo.ID(),
		title:     todo.Title(),
		done:      todo.Done(),
		createdAt: todo.CreatedAt(),
		updatedAt: todo.UpdatedAt(),
	}
	return nil
}

// FindByID は指定IDのTodoを返す。見つからない場合はnilを返す。
func (tx *memoryTodoTx) FindByID(ctx context.Context, id int64) (*model.Todo, error) {
	row, ok := tx.rows[id]
	if !ok {
		return nil, nil
	}
	return row.toModel(), nil
}

// FindAll は全Todoをid昇順で返す。
func (tx *memoryTodoTx) FindAll(ctx context.Context) ([]*model.Todo, error) {
	ids := make([]int64, 0, len(tx.rows))
	for id := range tx.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	todos := make([]*model.Todo, 0, len(ids))
	for _, id := range ids {
		todos = append(todos, tx.rows[id].toModel())
	}
	return todos, nil
}

// Delete はスナップショットからTodoを削除する。
func (tx *memoryTodoTx) Delete(ctx context.Context, todo *model.Todo) error {
	if tx.readOnly {
		return errReadOnlyTx
	}
	if _, ok := tx.rows[todo.ID()]; !ok {
		return model.NewTodoNotFoundError(todo.ID())
	}
	delete(tx.rows, todo.ID())
	return nil
}

// compile-time interface checks
var _ TxRunner = (*MemoryTodoStore)(nil)
var _ Pinger = (*MemoryTodoStore)(nil)
var _ TodoRepository = (*memoryTodoTx)(nil)
