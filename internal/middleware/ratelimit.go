package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	Rate            rate.Limit    // クライアントごとのレート（req/sec）
	Burst           int           // クライアントごとのバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// クライアントIPごとに 600 req/min、バースト100。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Rate:            rate.Limit(600.0 / 60.0),
		Burst:           100,
		CleanupInterval: 5 * time.Minute,
	}
}

// RateLimiterConfigPerMinute は1分あたりのリクエスト数からRateLimiterConfigを生成する。
func RateLimiterConfigPerMinute(perMinute, burst int) RateLimiterConfig {
	cfg := DefaultRateLimiterConfig()
	cfg.Rate = rate.Limit(float64(perMinute) / 60.0)
	cfg.Burst = burst
	return cfg
}

// clientLimiter はクライアントごとのレートリミッターとアクセス時刻を保持する。
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter はクライアントIPごとのレート制限を管理する。
type RateLimiter struct {
	config RateLimiterConfig

	mu       sync.Mutex
	limiters map[string]*clientLimiter

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:   config,
		limiters: make(map[string]*clientLimiter),
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。複数回呼んでもよい。
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware はクライアントIPごとのレート制限ミドルウェアを返す。
// 上限を超えた場合は429と統一エラーフォーマットを返す。
func (rl *RateLimiter) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := clientIPFromRequest(r)

			if !rl.limiterFor(clientIP).Allow() {
				slog.Warn("rate limit exceeded",
					slog.String("client_ip", clientIP),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rl.config.Rate)))
				WriteErrorResponse(w, r, http.StatusTooManyRequests, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LimiterCount は現在管理されているリミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) LimiterCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// limiterFor はクライアントのリミッターを取得または作成する。
func (rl *RateLimiter) limiterFor(clientIP string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if cl, ok := rl.limiters[clientIP]; ok {
		cl.lastAccess = time.Now()
		return cl.limiter
	}

	limiter := rate.NewLimiter(rl.config.Rate, rl.config.Burst)
	rl.limiters[clientIP] = &clientLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}
	return limiter
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup(now time.Time) {
	ttl := rl.config.CleanupInterval * 2

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for clientIP, cl := range rl.limiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.limiters, clientIP)
		}
	}
}

// clientIPFromRequest はRemoteAddrからクライアントIPを取り出す。
// X-Forwarded-Forは偽装できるため参照しない。
func clientIPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// retryAfterSeconds は1トークンが補充されるまでの秒数を返す。最小1秒。
func retryAfterSeconds(r rate.Limit) int {
	if r <= 0 {
		return 1
	}
	sec := int(math.Ceil(1.0 / float64(r)))
	if sec < 1 {
		sec = 1
	}
	return sec
}
