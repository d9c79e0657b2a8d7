// Package logger はJSON構造化ログの初期化を提供する。
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// level はSetupDefaultで生成したロガーの出力レベル。
// 設定読み込み後にSetLevelで変更できる。
var level = new(slog.LevelVar)

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// wがnilの場合はos.Stdoutに出力する。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(Setup(w))
}

// SetLevel はログレベルを名前（debug, info, warn, error）で設定する。
func SetLevel(name string) error {
	l, err := ParseLevel(name)
	if err != nil {
		return err
	}
	level.Set(l)
	return nil
}

// ParseLevel はログレベル名をslog.Levelに変換する。
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %q", name)
	}
}
