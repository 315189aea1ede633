package app

import (
	"fmt"
	"strconv"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe は管理APIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はディール監視ワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

const (
	migrateUp   = "up"
	migrateDown = "down"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "worker":
		return CommandWorker
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}

// parseMigrateArgs はmigrateサブコマンドの引数を解析する。
// "down"の段数は省略時1。
func parseMigrateArgs(args []string) (direction string, steps int, err error) {
	if len(args) == 0 || args[0] == migrateUp {
		return migrateUp, 0, nil
	}
	if args[0] != migrateDown {
		return "", 0, fmt.Errorf("unknown migrate direction %q (want up or down)", args[0])
	}
	if len(args) < 2 {
		return migrateDown, 1, nil
	}
	steps, err = strconv.Atoi(args[1])
	if err != nil || steps <= 0 {
		return "", 0, fmt.Errorf("invalid rollback steps %q", args[1])
	}
	return migrateDown, steps, nil
}
