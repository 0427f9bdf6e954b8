// Package inmemory implements storage.Storage on top of process memory with
// optional persistence to a JSON file.
package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/and161185/glean-metrics/internal/errs"
	"github.com/and161185/glean-metrics/model"
	"github.com/and161185/glean-metrics/storage"
	"go.uber.org/zap"
)

type MemStorage struct {
	stores map[string]map[string]*model.Metric
	mu     sync.RWMutex
	logger *zap.SugaredLogger
}

func NewMemStorage(logger *zap.SugaredLogger) *MemStorage {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &MemStorage{
		stores: make(map[string]map[string]*model.Metric),
		logger: logger,
	}
}

func (store *MemStorage) Record(ctx context.Context, stores []string, m *model.Metric) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, name := range stores {
		metrics, ok := store.stores[name]
		if !ok {
			metrics = make(map[string]*model.Metric)
			store.stores[name] = metrics
		}
		metrics[m.ID] = storage.Merge(metrics[m.ID], m)
	}
	return nil
}

func (store *MemStorage) Get(ctx context.Context, name, id string) (*model.Metric, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	val, ok := store.stores[name][id]
	if !ok {
		return nil, errs.ErrMetricNotFound
	}
	return val.Clone(), nil
}

func (store *MemStorage) Snapshot(ctx context.Context, name string, clearPing bool) (map[string]*model.Metric, error) {
	if clearPing {
		store.mu.Lock()
		defer store.mu.Unlock()
	} else {
		store.mu.RLock()
		defer store.mu.RUnlock()
	}

	metrics := store.stores[name]
	result := make(map[string]*model.Metric, len(metrics))
	for id, m := range metrics {
		result[id] = m.Clone()
		if clearPing && m.Lifetime == model.LifetimePing {
			delete(metrics, id)
		}
	}
	if clearPing && len(metrics) == 0 {
		delete(store.stores, name)
	}
	return result, nil
}

// StoreNames returns the names of all stores that currently hold values.
func (store *MemStorage) StoreNames(ctx context.Context) ([]string, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	names := make([]string, 0, len(store.stores))
	for name := range store.stores {
		names = append(names, name)
	}
	return names, nil
}

func (store *MemStorage) ClearLifetime(ctx context.Context, lifetime model.Lifetime) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for name, metrics := range store.stores {
		for id, m := range metrics {
			if m.Lifetime == lifetime {
				delete(metrics, id)
			}
		}
		if len(metrics) == 0 {
			delete(store.stores, name)
		}
	}
	return nil
}

func (store *MemStorage) ClearAll(ctx context.Context) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.stores = make(map[string]map[string]*model.Metric)
	return nil
}

// SaveToFile writes ping and user lifetime values to filePath.
// Application lifetime values are not persisted.
func (store *MemStorage) SaveToFile(ctx context.Context, filePath string) error {
	store.mu.RLock()
	persisted := make(map[string]map[string]*model.Metric, len(store.stores))
	for name, metrics := range store.stores {
		for id, m := range metrics {
			if m.Lifetime == model.LifetimeApplication {
				continue
			}
			if persisted[name] == nil {
				persisted[name] = make(map[string]*model.Metric)
			}
			persisted[name][id] = m.Clone()
		}
	}
	store.mu.RUnlock()

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	store.logger.Debugf("saved %d stores to %s", len(persisted), filePath)

	return nil
}

// LoadFromFile restores values written by SaveToFile. A missing file is not
// an error. Loaded values replace existing ones with the same key.
func (store *MemStorage) LoadFromFile(ctx context.Context, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	var persisted map[string]map[string]*model.Metric
	if err := json.Unmarshal(data, &persisted); err != nil {
		return fmt.Errorf("failed to unmarshal metrics: %w", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	for name, metrics := range persisted {
		if store.stores[name] == nil {
			store.stores[name] = make(map[string]*model.Metric, len(metrics))
		}
		for id, m := range metrics {
			if m == nil || m.Lifetime == model.LifetimeApplication {
				continue
			}
			m.ID = id
			store.stores[name][id] = m
		}
	}

	store.logger.Debugf("loaded %d stores from %s", len(persisted), filePath)

	return nil
}

func (store *MemStorage) Ping(ctx context.Context) error {
	return nil
}
