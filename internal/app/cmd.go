package app

import "fmt"

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーを起動する。引数なしの場合のデフォルト。
	CommandServe Command = "serve"
	// CommandHealthcheck は稼働中のサーバーの /health を確認する。
	// シェルのないdistrolessイメージのHEALTHCHECKから使う。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はos.Args[1:]の先頭からサブコマンドを取り出す。
// 引数がなければCommandServeを返し、未知のサブコマンドはエラーとする。
// 2番目以降の引数は無視する。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandServe, nil
	}

	switch cmd := Command(args[0]); cmd {
	case CommandServe, CommandHealthcheck:
		return cmd, nil
	default:
		return "", fmt.Errorf("unknown command %q (available: %s, %s)", args[0], CommandServe, CommandHealthcheck)
	}
}
