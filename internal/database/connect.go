package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	// initialConnectBackoff は接続リトライの初回待ち時間。
	initialConnectBackoff = 500 * time.Millisecond
	// maxConnectBackoff は接続リトライの最大待ち時間。
	maxConnectBackoff = 8 * time.Second
)

// Pinger はデータベースの疎通確認インターフェース。*sql.DBが満たす。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// WaitForConnection はデータベースに到達できるまで最大attempts回Pingする。
// 失敗のたびに指数バックオフで待機する。ctxがキャンセルされた場合はその時点で中断する。
// コンテナ起動直後にPostgreSQLの準備が整っていない場合に備えて起動時にのみ使う。
func WaitForConnection(ctx context.Context, db Pinger, attempts int) error {
	return waitForConnection(ctx, db, attempts, initialConnectBackoff)
}

func waitForConnection(ctx context.Context, db Pinger, attempts int, initial time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}

		delay := connectBackoff(initial, attempt)
		slog.Warn("database is not reachable yet, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", attempts),
			slog.Duration("retry_in", delay),
			slog.String("error", err.Error()),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("gave up connecting to database: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
}

// connectBackoff は失敗回数に基づく指数バックオフ遅延を計算する。
// initialから2倍ずつ増加し、maxConnectBackoffで頭打ちになる。
func connectBackoff(initial time.Duration, failures int) time.Duration {
	delay := initial
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay > maxConnectBackoff {
			return maxConnectBackoff
		}
	}
	return delay
}
