// Package dashboard holds the application logic shared by the web and CLI
// front ends. It turns a request's selections into the statistics and
// ranking that get shown, and has no HTTP dependencies.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/solardash/internal/config"
	"github.com/JonMunkholm/solardash/internal/dataset"
	"github.com/JonMunkholm/solardash/internal/history"
	"github.com/JonMunkholm/solardash/internal/logging"
	"github.com/JonMunkholm/solardash/internal/session"
)

// ErrDatasetNotFound is returned for an unknown or expired upload id.
var ErrDatasetNotFound = errors.New("dataset not found")

// DefaultDatasetName labels the bundled table in views and history.
const DefaultDatasetName = "default"

// Service provides the dashboard operations shared by all front ends.
type Service struct {
	cfg     config.DatasetConfig
	store   *session.Store
	history history.Log
	uploads *UploadLimiter

	mu         sync.RWMutex
	defaultTbl *dataset.Table
	defaultErr error
}

// NewService wires a service from configuration. hist may be nil, in which
// case history is kept in memory.
func NewService(cfg *config.Config, hist history.Log) *Service {
	if hist == nil {
		hist = history.NewMemoryLog(history.DefaultRecentLimit * 4)
	}
	return &Service{
		cfg:        cfg.Dataset,
		store:      session.NewStore(cfg.Session.TTL, cfg.Session.MaxDatasets),
		history:    hist,
		uploads:    NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		defaultErr: &dataset.LoadError{Source: cfg.Dataset.DefaultPath, Err: dataset.ErrSourceNotFound},
	}
}

func (s *Service) loadOptions() dataset.Options {
	return dataset.Options{IDColumn: s.cfg.IDColumn, RegionColumn: s.cfg.RegionColumn}
}

// LoadDefault reads the bundled dataset from the configured path. A missing
// file is not fatal for the server: the error is remembered and reported
// whenever the default table is requested, so the UI can offer an upload.
func (s *Service) LoadDefault(ctx context.Context) error {
	path := s.cfg.DefaultPath
	t, err := dataset.LoadFile(path, s.loadOptions())

	s.mu.Lock()
	s.defaultTbl, s.defaultErr = t, err
	s.mu.Unlock()

	if err != nil {
		return err
	}

	slog.Info("default dataset loaded",
		"path", path,
		"rows", t.Len(),
		"columns", len(t.Columns()),
		"id_column", t.Layout().ID,
		"region_column", t.Layout().Region,
	)
	s.record(ctx, "", path, t)
	return nil
}

// HasDefault reports whether the bundled dataset is available.
func (s *Service) HasDefault() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultTbl != nil
}

// Table returns the uploaded table for id, or the default table when id is
// empty. It also returns a display name for the dataset.
func (s *Service) Table(id string) (*dataset.Table, string, error) {
	if id == "" {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.defaultTbl == nil {
			return nil, "", s.defaultErr
		}
		return s.defaultTbl, DefaultDatasetName, nil
	}

	t, info, ok := s.store.Get(id)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return t, info.Name, nil
}

// LoadUpload parses an uploaded CSV and keeps it in the session store.
// It waits for an upload slot first and returns the new dataset id.
func (s *Service) LoadUpload(ctx context.Context, name string, r io.Reader) (string, *dataset.Table, error) {
	if err := s.uploads.Acquire(ctx); err != nil {
		return "", nil, err
	}
	defer s.uploads.Release()

	start := time.Now()
	t, err := dataset.LoadReader(name, r, s.loadOptions())
	if err != nil {
		return "", nil, err
	}
	if err := ctx.Err(); err != nil {
		return "", nil, fmt.Errorf("load %s: %w", name, err)
	}

	id := s.store.Put(name, t)
	logging.WithFields(ctx, "dataset_id", id, "file", name).Info("dataset uploaded",
		"rows", t.Len(),
		"bytes", t.SizeBytes(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	s.record(ctx, id, name, t)
	return id, t, nil
}

// PreviewUpload parses an upload the same way LoadUpload does without
// keeping or recording it.
func (s *Service) PreviewUpload(ctx context.Context, name string, r io.Reader) (*dataset.Table, error) {
	if err := s.uploads.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.uploads.Release()
	return dataset.LoadReader(name, r, s.loadOptions())
}

// record writes a history entry. Failures are logged, never returned: the
// dataset is usable even when the history backend is down.
func (s *Service) record(ctx context.Context, id, name string, t *dataset.Table) {
	err := s.history.Record(ctx, history.Entry{
		ID:       id,
		Name:     name,
		Rows:     t.Len(),
		Columns:  len(t.Columns()),
		Bytes:    t.SizeBytes(),
		IDColumn: t.Layout().ID,
		LoadedAt: time.Now(),
	})
	if err != nil {
		logging.FromContext(ctx).Warn("record upload history failed", "file", name, "error", err)
	}
}

// RecentUploads returns upload history, newest first.
func (s *Service) RecentUploads(ctx context.Context, limit int) ([]history.Entry, error) {
	return s.history.Recent(ctx, limit)
}

// DropUpload forgets an uploaded dataset. Its history entry stays.
func (s *Service) DropUpload(id string) error {
	if !s.store.Delete(id) {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	slog.Info("dataset dropped", "dataset_id", id)
	return nil
}

// Sessions lists the live uploaded datasets.
func (s *Service) Sessions() []session.Info {
	return s.store.List()
}

// UploadLimiterStatus returns the current upload slot usage.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return s.uploads.Status()
}

// WaitForUploads blocks until in-flight uploads finish or ctx is done.
// Used during graceful shutdown.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.uploads.WaitForDrain(ctx)
}
