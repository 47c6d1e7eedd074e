package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ZKRegistry/internal/api"
	"ZKRegistry/internal/logger"
	"ZKRegistry/internal/registry"
	"ZKRegistry/internal/snapshot"
	"ZKRegistry/internal/storage"
)

// Service is a running registry node.
type Service struct {
	cfg     *Config
	storage *storage.Storage
	reg     *registry.Registry
	api     *api.Server
}

// NewService creates and initializes the service.
func NewService(cfg *Config) (*Service, error) {
	s := &Service{cfg: cfg}

	db, err := storage.New(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("open storage:\n%w", err)
	}

	s.storage = db
	s.reg = registry.New(db)

	if cfg.RestorePath != "" {
		if err := s.restore(cfg.RestorePath); err != nil {
			s.Close()
			return nil, err
		}
	}

	if cfg.Initialize {
		if err := s.reg.Initialize(cfg.Authority); err != nil {
			s.Close()
			return nil, fmt.Errorf("initialize registry:\n%w", err)
		}
	}

	s.api = api.New(cfg.HTTPAddress, s.reg, s)

	return s, nil
}

// Snapshot exports the registry contents. Implements api.SnapshotProvider.
func (s *Service) Snapshot() ([]byte, error) {
	return snapshot.Create(s.storage)
}

// restore loads a snapshot file into an empty registry. Both the state
// singleton and the record namespace must be absent, so a restore can never
// merge snapshot records with leftovers of an earlier deployment.
func (s *Service) restore(path string) error {
	_, err := s.reg.State()
	if err == nil {
		return fmt.Errorf("refusing to restore over an initialized registry")
	}
	if !errors.Is(err, registry.ErrNotInitialized) {
		return err
	}

	stray, err := s.hasRecords()
	if err != nil {
		return fmt.Errorf("scan records:\n%w", err)
	}
	if stray {
		return fmt.Errorf("refusing to restore over existing verification records")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read snapshot:\n%w", err)
	}

	if err := snapshot.Apply(s.storage, data); err != nil {
		return fmt.Errorf("restore snapshot:\n%w", err)
	}

	logger.Info("snapshot restored", "path", path)

	return nil
}

// errRecordFound stops the record scan at the first hit.
var errRecordFound = errors.New("record found")

// hasRecords reports whether any verification record exists in storage.
func (s *Service) hasRecords() (bool, error) {
	err := s.storage.IteratePrefix(registry.RecordKeyPrefix(), func(key, value []byte) error {
		return errRecordFound
	})
	if errors.Is(err, errRecordFound) {
		return true, nil
	}

	return false, err
}

// Run starts the HTTP API and blocks until a shutdown signal arrives.
func (s *Service) Run() error {
	if err := s.api.Start(); err != nil {
		return fmt.Errorf("start api:\n%w", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")

	return s.Close()
}

// Close releases all resources.
func (s *Service) Close() error {
	if s.api != nil {
		if err := s.api.Stop(); err != nil {
			logger.Warn("api shutdown", "error", err)
		}
	}

	if s.storage != nil {
		return s.storage.Close()
	}

	return nil
}
