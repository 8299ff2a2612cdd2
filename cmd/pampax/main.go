package main

import (
	"os"

	"github.com/pampax/pampax/cmd/pampax/cmd"
	"github.com/pampax/pampax/internal/logging"
)

func main() {
	logging.Setup(logging.Options{Writer: os.Stderr})

	if err := cmd.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
