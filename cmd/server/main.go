package main

import (
	"github.com/regioflex/regioflex/internal/server"
	"github.com/regioflex/regioflex/internal/util"
	"github.com/regioflex/regioflex/pkg/logger"
	"github.com/regioflex/regioflex/pkg/logger/console"
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
