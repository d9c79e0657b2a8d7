// Command todoapp はTodo管理APIサーバーを起動する。
//
// サブコマンド:
//
//	serve        APIサーバーを起動する（デフォルト）
//	healthcheck  /health に問い合わせ、異常なら非0で終了する
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/todoapp/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "todoapp: %v\n", err)
		os.Exit(1)
	}
}
