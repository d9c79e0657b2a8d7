package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/todoapp/internal/model"
)

// TimestampLayout はレスポンスの日時フォーマット。オフセットを含まないサーバーローカル時刻。
const TimestampLayout = "2006-01-02T15:04:05.999999"

// TodoServiceInterface はTodoハンドラーが必要とするサービスインターフェース。
type TodoServiceInterface interface {
	CreateTodo(ctx context.Context, title string) (*model.Todo, error)
	UpdateTodoTitle(ctx context.Context, id int64, newTitle string) (*model.Todo, error)
	ToggleTodoStatus(ctx context.Context, id int64, done bool) (*model.Todo, error)
	FindTodoByID(ctx context.Context, id int64) (*model.Todo, error)
	FindAllTodos(ctx context.Context) ([]*model.Todo, error)
	DeleteTodo(ctx context.Context, id int64) error
}

// TodoHandler はTodo管理のHTTPハンドラー。
type TodoHandler struct {
	service TodoServiceInterface
	errors  *ErrorTranslator
}

// NewTodoHandler はTodoHandlerを生成する。
func NewTodoHandler(service TodoServiceInterface, translator *ErrorTranslator) *TodoHandler {
	return &TodoHandler{
		service: service,
		errors:  translator,
	}
}

// todoResponse はTodoのAPIレスポンス。
type todoResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Done      bool   `json:"done"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// CreateTodo はTodoを作成する。
// POST /todos?title=...
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	title, err := requiredQuery(r, "title")
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	todo, err := h.service.CreateTodo(r.Context(), title)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTodoResponse(todo))
}

// UpdateTodoTitle はTodoのタイトルを変更する。
// PUT /todos/{id}/title?newTitle=...
func (h *TodoHandler) UpdateTodoTitle(w http.ResponseWriter, r *http.Request) {
	id, err := todoIDParam(r)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	newTitle, err := requiredQuery(r, "newTitle")
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	todo, err := h.service.UpdateTodoTitle(r.Context(), id, newTitle)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTodoResponse(todo))
}

// ToggleTodoStatus はTodoの完了フラグを設定する。
// PUT /todos/{id}/status?status=true|false（on/off, yes/no, 1/0も可）
func (h *TodoHandler) ToggleTodoStatus(w http.ResponseWriter, r *http.Request) {
	id, err := todoIDParam(r)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	raw, err := requiredQuery(r, "status")
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	done, ok := parseStatusFlag(raw)
	if !ok {
		h.errors.Write(w, r, model.NewInvalidParameterError("status", raw))
		return
	}

	todo, err := h.service.ToggleTodoStatus(r.Context(), id, done)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTodoResponse(todo))
}

// GetTodo は指定IDのTodoを返す。
// GET /todos/{id}
func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	id, err := todoIDParam(r)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	todo, err := h.service.FindTodoByID(r.Context(), id)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTodoResponse(todo))
}

// ListTodos は全Todoをid昇順で返す。
// GET /todos
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.service.FindAllTodos(r.Context())
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	resp := make([]todoResponse, 0, len(todos))
	for _, todo := range todos {
		resp = append(resp, toTodoResponse(todo))
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteTodo はTodoを削除し、確認メッセージをテキストで返す。
// DELETE /todos/{id}
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := todoIDParam(r)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	if err := h.service.DeleteTodo(r.Context(), id); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Todo id:%d was deleted successfully!", id)
}

// --- ヘルパー関数 ---

// toTodoResponse はmodel.TodoからAPIレスポンスに変換する。
func toTodoResponse(todo *model.Todo) todoResponse {
	return todoResponse{
		ID:        todo.ID(),
		Title:     todo.Title(),
		Done:      todo.Done(),
		CreatedAt: formatTimestamp(todo.CreatedAt()),
		UpdatedAt: formatTimestamp(todo.UpdatedAt()),
	}
}

func formatTimestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// todoIDParam はパスパラメータidを取り出す。整数でない場合はValidationErrorを返す。
func todoIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, model.NewInvalidParameterError("id", raw)
	}
	return id, nil
}

// parseStatusFlag はstatusクエリを真偽値に変換する。
// 前後の空白を除き大文字小文字を区別せず、true/on/yes/1 と false/off/no/0 だけを受け付ける。
// strconv.ParseBoolと違い t/f は受け付けない。
func parseStatusFlag(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "on", "yes", "1":
		return true, true
	case "false", "off", "no", "0":
		return false, true
	default:
		return false, false
	}
}

// requiredQuery はクエリパラメータを取り出す。パラメータ自体がない場合はValidationErrorを返す。
// 空文字列は存在するものとして扱い、判定はドメイン側に任せる。
func requiredQuery(r *http.Request, name string) (string, error) {
	values, ok := r.URL.Query()[name]
	if !ok || len(values) == 0 {
		return "", model.NewMissingParameterError(name)
	}
	return values[0], nil
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", slog.String("error", err.Error()))
	}
}
