package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/todoapp/internal/middleware"
	"github.com/hitoshi/todoapp/internal/model"
)

// --- モック定義 ---

// mockTodoService はTodoServiceInterfaceのモック実装。
type mockTodoService struct {
	createTodoFn       func(ctx context.Context, title string) (*model.Todo, error)
	updateTodoTitleFn  func(ctx context.Context, id int64, newTitle string) (*model.Todo, error)
	toggleTodoStatusFn func(ctx context.Context, id int64, done bool) (*model.Todo, error)
	findTodoByIDFn     func(ctx context.Context, id int64) (*model.Todo, error)
	findAllTodosFn     func(ctx context.Context) ([]*model.Todo, error)
	deleteTodoFn       func(ctx context.Context, id int64) error
}

func (m *mockTodoService) CreateTodo(ctx context.Context, title string) (*model.Todo, error) {
	if m.createTodoFn != nil {
		return m.createTodoFn(ctx, title)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTodoService) UpdateTodoTitle(ctx context.Context, id int64, newTitle string) (*model.Todo, error) {
	if m.updateTodoTitleFn != nil {
		return m.updateTodoTitleFn(ctx, id, newTitle)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTodoService) ToggleTodoStatus(ctx context.Context, id int64, done bool) (*model.Todo, error) {
	if m.toggleTodoStatusFn != nil {
		return m.toggleTodoStatusFn(ctx, id, done)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTodoService) FindTodoByID(ctx context.Context, id int64) (*model.Todo, error) {
	if m.findTodoByIDFn != nil {
		return m.findTodoByIDFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTodoService) FindAllTodos(ctx context.Context) ([]*model.Todo, error) {
	if m.findAllTodosFn != nil {
		return m.findAllTodosFn(ctx)
	}
	return []*model.Todo{}, nil
}

func (m *mockTodoService) DeleteTodo(ctx context.Context, id int64) error {
	if m.deleteTodoFn != nil {
		return m.deleteTodoFn(ctx, id)
	}
	return errors.New("not implemented")
}

// --- テストヘルパー ---

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseErrorResponse はレスポンスボディから統一エラーフォーマットをパースするヘルパー。
func parseErrorResponse(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

// parseTodoResponse はレスポンスボディからTodoをパースするヘルパー。
func parseTodoResponse(t *testing.T, w *httptest.ResponseRecorder) todoResponse {
	t.Helper()
	var body todoResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode todo response: %v", err)
	}
	return body
}

var testTime = time.Date(2024, 5, 1, 10, 30, 0, 123456000, time.Local)

func storedTodo(id int64, title string, done bool) *model.Todo {
	return model.RestoreTodo(id, title, done, testTime, testTime)
}

func newTestTodoHandler(svc TodoServiceInterface) *TodoHandler {
	return NewTodoHandler(svc, NewErrorTranslator(StatusMappingInternal, nil))
}

// --- CreateTodo ---

func TestCreateTodo_Success(t *testing.T) {
	var gotTitle string
	h := newTestTodoHandler(&mockTodoService{
		createTodoFn: func(ctx context.Context, title string) (*model.Todo, error) {
			gotTitle = title
			return storedTodo(1, title, false), nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/todos?title=buy+milk", nil)
	w := httptest.NewRecorder()
	h.CreateTodo(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if gotTitle != "buy milk" {
		t.Errorf("service received title %q, want %q", gotTitle, "buy milk")
	}

	body := parseTodoResponse(t, w)
	if body.ID != 1 || body.Title != "buy milk" || body.Done {
		t.Errorf("unexpected body: %+v", body)
	}
	if body.CreatedAt != "2024-05-01T10:30:00.123456" {
		t.Errorf("createdAt = %q, want %q", body.CreatedAt, "2024-05-01T10:30:00.123456")
	}
}

func TestCreateTodo_MissingTitle_Returns500WithUnifiedBody(t *testing.T) {
	called := false
	h := newTestTodoHandler(&mockTodoService{
		createTodoFn: func(ctx context.Context, title string) (*model.Todo, error) {
			called = true
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/todos", nil)
	w := httptest.NewRecorder()
	h.CreateTodo(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if called {
		t.Error("service should not be called without title")
	}

	body := parseErrorResponse(t, w)
	if body.Path != "/todos" {
		t.Errorf("path = %q, want %q", body.Path, "/todos")
	}
	if !strings.Contains(body.Message, "title") {
		t.Errorf("message %q should mention the parameter", body.Message)
	}
}

func TestCreateTodo_EmptyTitlePassedToService(t *testing.T) {
	h := newTestTodoHandler(&mockTodoService{
		createTodoFn: func(ctx context.Context, title string) (*model.Todo, error) {
			if title != "" {
				t.Errorf("title = %q, want empty", title)
			}
			return nil, model.NewTitleBlankError()
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/todos?title=", nil)
	w := httptest.NewRecorder()
	h.CreateTodo(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	body := parseErrorResponse(t, w)
	if body.Message != model.NewTitleBlankError().Message {
		t.Errorf("message = %q, want %q", body.Message, model.NewTitleBlankError().Message)
	}
}

// --- UpdateTodoTitle ---

func TestUpdateTodoTitle_Success(t *testing.T) {
	h := newTestTodoHandler(&mockTodoService{
		updateTodoTitleFn: func(ctx context.Context, id int64, newTitle string) (*model.Todo, error) {
			if id != 3 {
				t.Errorf("id = %d, want 3", id)
			}
			return storedTodo(id, newTitle, false), nil
		},
	})

	req := httptest.NewRequest(http.MethodPut, "/todos/3/title?newTitle=renamed", nil)
	req = withChiURLParam(req, "id", "3")
	w := httptest.NewRecorder()
	h.UpdateTodoTitle(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if body := parseTodoResponse(t, w); body.Title != "renamed" {
		t.Errorf("title = %q, want %q", body.Title, "renamed")
	}
}

func TestUpdateTodoTitle_InvalidID(t *testing.T) {
	h := newTestTodoHandler(&mockTodoService{})

	req := httptest.NewRequest(http.MethodPut, "/todos/abc/title?newTitle=x", nil)
	req = withChiURLParam(req, "id", "abc")
	w := httptest.NewRecorder()
	h.UpdateTodoTitle(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if body := parseErrorResponse(t, w); !strings.Contains(body.Message, "id") {
		t.Errorf("message %q should mention id", body.Message)
	}
}

func TestUpdateTodoTitle_NotFound(t *testing.T) {
	h := newTestTodoHandler(&mockTodoService{
		updateTodoTitleFn: func(ctx context.Context, id int64, newTitle string) (*model.Todo, error) {
			return nil, model.NewTodoNotFoundError(id)
		},
	})

	req := httptest.NewRequest(http.MethodPut, "/todos/99/title?newTitle=x", nil)
	req = withChiURLParam(req, "id", "99")
	w := httptest.NewRecorder()
	h.UpdateTodoTitle(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	body := parseErrorResponse(t, w)
	if body.Message != model.NewTodoNotFoundError(99).Error() {
		t.Errorf("message = %q", body.Message)
	}
	if body.Path != "/todos/99/title" {
		t.Errorf("path = %q", body.Path)
	}
}

// --- ToggleTodoStatus ---

func TestToggleTodoStatus_ParsesBool(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"true", true},
		{"false", false},
		{"1", true},
		{"0", false},
		{"on", true},
		{"off", false},
		{"yes", true},
		{"no", false},
		{"TrUe", true},
		{"OFF", false},
		{"%20yes%20", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			h := newTestTodoHandler(&mockTodoService{
				toggleTodoStatusFn: func(ctx context.Context, id int64, done bool) (*model.Todo, error) {
					if done != tt.want {
						t.Errorf("done = %v, want %v", done, tt.want)
					}
					return storedTodo(id, "task", done), nil
				},
			})

			req := httptest.NewRequest(http.MethodPut, "/todos/1/status?status="+tt.raw, nil)
			req = withChiURLParam(req, "id", "1")
			w := httptest.NewRecorder()
			h.ToggleTodoStatus(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if body := parseTodoResponse(t, w); body.Done != tt.want {
				t.Errorf("done = %v, want %v", body.Done, tt.want)
			}
		})
	}
}

func TestToggleTodoStatus_InvalidStatus(t *testing.T) {
	for _, raw := range []string{"maybe", "t", "f", "T", "2", "y", "n"} {
		t.Run(raw, func(t *testing.T) {
			h := newTestTodoHandler(&mockTodoService{
				toggleTodoStatusFn: func(ctx context.Context, id int64, done bool) (*model.Todo, error) {
					t.Error("service should not be called for invalid status")
					return nil, nil
				},
			})

			req := httptest.NewRequest(http.MethodPut, "/todos/1/status?status="+raw, nil)
			req = withChiURLParam(req, "id", "1")
			w := httptest.NewRecorder()
			h.ToggleTodoStatus(w, req)

			if w.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
			}
			if body := parseErrorResponse(t, w); !strings.Contains(body.Message, raw) {
				t.Errorf("message %q should contain the rejected value", body.Message)
			}
		})
	}
}

// --- GetTodo / ListTodos ---

func TestGetTodo_Success(t *testing.T) {
	h := newTestTodoHandler(&mockTodoService{
		findTodoByIDFn: func(ctx context.Context, id int64) (*model.Todo, error) {
			return storedTodo(id, "found", true), nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/todos/5", nil)
	req = withChiURLParam(req, "id", "5")
	w := httptest.NewRecorder()
	h.GetTodo(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := parseTodoResponse(t, w)
	if body.ID != 5 || body.Title != "found" || !body.Done {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestListTodos_EmptyIsArray(t *testing.T) {
	h := newTestTodoHandler(&mockTodoService{
		findAllTodosFn: func(ctx context.Context) ([]*model.Todo, error) {
			return []*model.Todo{}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	w := httptest.NewRecorder()
	h.ListTodos(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %q, want %q", got, "[]")
	}
}

func TestListTodos_KeepsServiceOrder(t *testing.T) {
	h := newTestTodoHandler(&mockTodoService{
		findAllTodosFn: func(ctx context.Context) ([]*model.Todo, error) {
			return []*model.Todo{
				storedTodo(1, "first", false),
				storedTodo(2, "second", true),
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	w := httptest.NewRecorder()
	h.ListTodos(w, req)

	var body []todoResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body) != 2 || body[0].ID != 1 || body[1].ID != 2 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestListTodos_ServiceError(t *testing.T) {
	h := newTestTodoHandler(&mockTodoService{
		findAllTodosFn: func(ctx context.Context) ([]*model.Todo, error) {
			return nil, errors.New("connection refused")
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	w := httptest.NewRecorder()
	h.ListTodos(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if body := parseErrorResponse(t, w); body.Message != "connection refused" {
		t.Errorf("message = %q, want %q", body.Message, "connection refused")
	}
}

// --- DeleteTodo ---

func TestDeleteTodo_ReturnsConfirmationText(t *testing.T) {
	h := newTestTodoHandler(&mockTodoService{
		deleteTodoFn: func(ctx context.Context, id int64) error { return nil },
	})

	req := httptest.NewRequest(http.MethodDelete, "/todos/12", nil)
	req = withChiURLParam(req, "id", "12")
	w := httptest.NewRecorder()
	h.DeleteTodo(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	if got := w.Body.String(); got != "Todo id:12 was deleted successfully!" {
		t.Errorf("body = %q", got)
	}
}

func TestDeleteTodo_NotFound(t *testing.T) {
	h := newTestTodoHandler(&mockTodoService{
		deleteTodoFn: func(ctx context.Context, id int64) error {
			return model.NewTodoNotFoundError(id)
		},
	})

	req := httptest.NewRequest(http.MethodDelete, "/todos/12", nil)
	req = withChiURLParam(req, "id", "12")
	w := httptest.NewRecorder()
	h.DeleteTodo(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestFormatTimestamp_OmitsOffsetAndTrailingZeros(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	if got := formatTimestamp(ts); got != "2024-01-02T03:04:05" {
		t.Errorf("formatTimestamp() = %q, want %q", got, "2024-01-02T03:04:05")
	}
}
