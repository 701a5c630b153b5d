package main

import (
	"os"

	"github.com/bnema/dcloud-assistant/cmd"
	"github.com/bnema/dcloud-assistant/internal/logging"
)

func main() {
	err := cmd.Execute()
	logging.Shutdown()
	if err != nil {
		os.Exit(1)
	}
}
