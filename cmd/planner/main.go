package main

import (
	"os"

	"travelplanner/internal/cli"
	"travelplanner/internal/util"
)

func main() {
	logger := util.NewLogger(os.Stderr, "info", "text")
	if err := cli.Execute(os.Args[1:], logger); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
