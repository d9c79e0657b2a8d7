package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/todoapp/internal/config"
	"github.com/hitoshi/todoapp/internal/database"
	"github.com/hitoshi/todoapp/internal/handler"
	"github.com/hitoshi/todoapp/internal/logger"
	"github.com/hitoshi/todoapp/internal/metrics"
	"github.com/hitoshi/todoapp/internal/middleware"
	"github.com/hitoshi/todoapp/internal/repository"
	"github.com/hitoshi/todoapp/internal/todo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、設定を読み込んでログレベルを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 設定ファイルと環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ログレベルを反映
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to set log level: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("store", cfg.StoreDriver),
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg)
}

// serve はストアを開いて全依存関係をワイヤリングし、ctxがキャンセルされるまでHTTPサーバーを動かす。
func serve(ctx context.Context, cfg *config.Config) error {
	// 1. ストア
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 3. ドメインサービス
	todoService := todo.NewService(store, collector)

	// 4. ルーター
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitPerMinute, cfg.RateLimitBurst),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:             slog.Default(),
		CORSAllowedOrigin:  cfg.CORSAllowedOrigin,
		RateLimiter:        rateLimiter,
		HTTPRecorder:       collector,
		TodoService:        todoService,
		ErrorStatusMapping: cfg.ErrorStatusMapping,
		Store:              store,
		MetricsHandler:     metrics.Handler(reg),
	})

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// todoStore はサービスとヘルスチェックが必要とするストアの機能。
type todoStore interface {
	repository.TxRunner
	repository.Pinger
}

// postgresStore はPostgresTxRunnerと疎通確認用の*sql.DBを束ねる。
type postgresStore struct {
	*repository.PostgresTxRunner
	repository.Pinger
}

// openStore は設定に応じてストアを開く。返される関数でストアを閉じる。
func openStore(ctx context.Context, cfg *config.Config) (todoStore, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		slog.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemoryTodoStore(nil), func() {}, nil
	}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.WaitForConnection(ctx, db, cfg.DBConnectAttempts); err != nil {
		db.Close()
		return nil, nil, err
	}

	slog.Info("database connection established",
		slog.String("driver", cfg.DatabaseDriver),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if cfg.AutoMigrate {
		version, err := database.EnsureSchema(cfg.DatabaseURL)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ensure schema: %w", err)
		}
		slog.Info("database schema is up to date", slog.Uint64("schema_version", uint64(version)))
	}

	store := postgresStore{
		PostgresTxRunner: repository.NewPostgresTxRunner(db, nil),
		Pinger:           db,
	}
	return store, func() { db.Close() }, nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
