package main

import (
	"flag"
	"fmt"

	"ZKRegistry/internal/registry"
)

// Config holds the service configuration.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string

	// HTTPAddress is the HTTP API listen address.
	HTTPAddress string

	// Initialize requests first-boot initialization of the registry.
	Initialize bool

	// Authority is the registry authority identity, required with -init.
	Authority registry.Identity

	// RestorePath is an optional snapshot file to restore at startup.
	RestorePath string
}

// parseFlags parses command-line flags into Config.
func parseFlags() (*Config, error) {
	cfg := &Config{}

	var authorityHex string

	flag.StringVar(&cfg.DataPath, "data", "./data", "Data directory path")
	flag.StringVar(&cfg.HTTPAddress, "http", ":8080", "HTTP API address")
	flag.BoolVar(&cfg.Initialize, "init", false, "Initialize the registry at startup")
	flag.StringVar(&authorityHex, "authority", "", "Registry authority (64-char hex), required with -init")
	flag.StringVar(&cfg.RestorePath, "restore", "", "Snapshot file to restore at startup")
	flag.Parse()

	if cfg.Initialize {
		if authorityHex == "" {
			return nil, fmt.Errorf("-init requires -authority")
		}

		authority, err := registry.ParseIdentity(authorityHex)
		if err != nil {
			return nil, fmt.Errorf("parse authority:\n%w", err)
		}

		cfg.Authority = authority
	}

	return cfg, nil
}
