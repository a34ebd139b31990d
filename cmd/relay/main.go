package main

import (
	"log/slog"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var logLevel = new(slog.LevelVar)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Error("relay failed", "error", err)
		os.Exit(1)
	}
}
