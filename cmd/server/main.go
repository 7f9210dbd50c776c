package main

import (
	"github.com/loomkg/loom/internal/server"
	"github.com/loomkg/loom/internal/util"
	"github.com/loomkg/loom/pkg/logger"
	"github.com/loomkg/loom/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
