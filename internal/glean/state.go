// Package glean holds the process-wide telemetry state: whether upload is
// enabled, the application identity, and active experiment annotations.
//
// A single State is created at the composition root and handed to every
// metric instrument as its model.UploadState.
package glean

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/and161185/glean-metrics/internal/errs"
	"github.com/and161185/glean-metrics/model"
	"github.com/and161185/glean-metrics/storage"
	"go.uber.org/zap"
)

const unknownApplicationInfo = "Unknown"

// Options configures a State. Empty version and build id are reported as
// "Unknown".
type Options struct {
	ApplicationID      string
	ApplicationVersion string
	ApplicationBuildID string
	UploadEnabled      bool
}

type State struct {
	applicationID      string
	applicationVersion string
	applicationBuildID string
	uploadEnabled      atomic.Bool
	initialized        atomic.Bool

	// toggleMu orders recordings (read side) against upload toggles and
	// initialization (write side).
	toggleMu sync.RWMutex

	store  storage.Storage
	logger *zap.SugaredLogger

	mu          sync.RWMutex
	experiments map[string]RecordedExperiment
}

var _ model.UploadState = (*State)(nil)

func New(opts Options, store storage.Storage, logger *zap.SugaredLogger) *State {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &State{
		applicationID:      opts.ApplicationID,
		applicationVersion: orUnknown(opts.ApplicationVersion),
		applicationBuildID: orUnknown(opts.ApplicationBuildID),
		store:              store,
		logger:             logger,
		experiments:        make(map[string]RecordedExperiment),
	}
	s.uploadEnabled.Store(opts.UploadEnabled)
	return s
}

// Initialize clears application-lifetime values left from a previous run
// and, if upload starts disabled, everything else as well. Calling it more
// than once is a no-op.
func (s *State) Initialize(ctx context.Context) error {
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()

	if s.initialized.Load() {
		s.logger.Warn("telemetry state already initialized")
		return nil
	}

	if err := s.store.ClearLifetime(ctx, model.LifetimeApplication); err != nil {
		return fmt.Errorf("clear application lifetime: %w", err)
	}
	if !s.uploadEnabled.Load() {
		if err := s.store.ClearAll(ctx); err != nil {
			return fmt.Errorf("clear stored metrics: %w", err)
		}
	}

	s.initialized.Store(true)
	s.logger.Infow("telemetry state initialized",
		"application_id", s.applicationID,
		"application_version", s.applicationVersion,
		"application_build_id", s.applicationBuildID,
		"upload_enabled", s.uploadEnabled.Load(),
	)
	return nil
}

func (s *State) IsInitialized() bool {
	return s.initialized.Load()
}

func (s *State) ApplicationID() string {
	return s.applicationID
}

func (s *State) ApplicationVersion() string {
	return s.applicationVersion
}

func (s *State) ApplicationBuildID() string {
	return s.applicationBuildID
}

// RecordLocked runs fn while no upload toggle can start. Instruments check
// the recording gate and write to storage inside fn, so a value accepted
// before upload is disabled is always cleared along with everything else.
func (s *State) RecordLocked(fn func()) {
	s.toggleMu.RLock()
	defer s.toggleMu.RUnlock()
	fn()
}

// IsUploadEnabled is safe to call from any goroutine and never blocks.
func (s *State) IsUploadEnabled() bool {
	return s.uploadEnabled.Load()
}

// SetUploadEnabled switches collection and upload on or off. Disabling
// clears every stored value and active experiment; if clearing fails,
// upload stays enabled. Setting the current value again does nothing.
func (s *State) SetUploadEnabled(ctx context.Context, enabled bool) error {
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()

	if s.uploadEnabled.Load() == enabled {
		return nil
	}

	if !enabled {
		if err := s.store.ClearAll(ctx); err != nil {
			return fmt.Errorf("clear stored metrics: %w", err)
		}
		s.mu.Lock()
		s.experiments = make(map[string]RecordedExperiment)
		s.mu.Unlock()
	}

	s.uploadEnabled.Store(enabled)
	s.logger.Infow("upload enabled changed", "upload_enabled", enabled)
	return nil
}

// CollectPing returns the values stored for the named ping and clears its
// ping-lifetime values. With upload disabled the result is empty and
// storage is left untouched.
func (s *State) CollectPing(ctx context.Context, name string) (map[string]*model.Metric, error) {
	s.toggleMu.RLock()
	defer s.toggleMu.RUnlock()

	if !s.initialized.Load() {
		return nil, errs.ErrNotInitialized
	}
	if !s.uploadEnabled.Load() {
		return map[string]*model.Metric{}, nil
	}

	snapshot, err := s.store.Snapshot(ctx, name, true)
	if err != nil {
		return nil, fmt.Errorf("collect ping %s: %w", name, err)
	}

	s.logger.Debugw("ping collected", "ping", name, "metrics", len(snapshot))
	return snapshot, nil
}

func orUnknown(s string) string {
	if s == "" {
		return unknownApplicationInfo
	}
	return s
}
