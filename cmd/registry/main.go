package main

import (
	"fmt"
	"os"

	"ZKRegistry/internal/logger"
)

func main() {
	logger.Init()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run() error {
	cfg, err := parseFlags()
	if err != nil {
		return err
	}

	svc, err := NewService(cfg)
	if err != nil {
		return fmt.Errorf("create service:\n%w", err)
	}

	printStartupInfo(cfg)

	return svc.Run()
}

// printStartupInfo displays the service configuration at startup.
func printStartupInfo(cfg *Config) {
	logger.Info("starting proof registry",
		"http", cfg.HTTPAddress,
		"data", cfg.DataPath,
		"init", cfg.Initialize,
	)
}
