package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/todoapp/internal/metrics"
	"github.com/hitoshi/todoapp/internal/middleware"
	"github.com/hitoshi/todoapp/internal/repository"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	HTTPRecorder      metrics.HTTPRecorder

	// Todo
	TodoService        TodoServiceInterface
	ErrorStatusMapping string

	// ヘルスチェックとメトリクス
	Store          repository.Pinger
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Metrics → Recovery → SecurityHeaders → CORS → RateLimit
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	}
	// panicによる500もLoggingとMetricsに記録される位置に置く
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	translator := NewErrorTranslator(deps.ErrorStatusMapping, logger)

	// ルーティングの失敗もTodo APIの失敗と同じ方式でステータスを決める
	r.NotFound(translator.NotFound)
	r.MethodNotAllowed(translator.MethodNotAllowed)

	// --- 運用エンドポイント ---
	if deps.Store != nil {
		r.Get("/health", NewHealthHandler(deps.Store).Health)
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- Todo API ---
	todoHandler := NewTodoHandler(deps.TodoService, translator)
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		r.Route("/todos", func(r chi.Router) {
			r.Get("/", todoHandler.ListTodos)
			r.Post("/", todoHandler.CreateTodo)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", todoHandler.GetTodo)
				r.Delete("/", todoHandler.DeleteTodo)
				r.Put("/title", todoHandler.UpdateTodoTitle)
				r.Put("/status", todoHandler.ToggleTodoStatus)
			})
		})
	})

	return r
}
