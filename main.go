package main

import (
	"moddb-curator/cmd"
	"moddb-curator/logger"

	_ "go.uber.org/automaxprocs"
)

func main() {
	logger.InitLogger(logger.DefaultLogFile, false)
	defer logger.Sync()
	cmd.Execute()
}
