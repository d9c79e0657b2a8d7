// Package database はデータベース接続とスキーマの初期化を提供する。
package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var schemaFiles embed.FS

// EnsureSchema は埋め込みのtodosテーブル定義を適用し、適用後のスキーマバージョンを返す。
// 適用済みであれば何もしない。前回の適用が途中で失敗しdirtyのままの場合はエラーを返す。
func EnsureSchema(databaseURL string) (uint, error) {
	source, err := iofs.New(schemaFiles, "migrations")
	if err != nil {
		return 0, fmt.Errorf("failed to read embedded schema: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return 0, fmt.Errorf("failed to connect for schema bootstrap: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to apply schema: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}
