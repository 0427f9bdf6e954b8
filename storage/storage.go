// Package storage defines the persistence contract for recorded metric values.
package storage

import (
	"context"

	"github.com/and161185/glean-metrics/model"
)

// Storage keeps metric values per destination ping ("store").
type Storage interface {
	// Record writes m into every named store. Counters accumulate,
	// other types replace the previous value.
	Record(ctx context.Context, stores []string, m *model.Metric) error
	// Get returns the value of metric id in store, or errs.ErrMetricNotFound.
	Get(ctx context.Context, store, id string) (*model.Metric, error)
	// Snapshot returns every value in store. With clearPing set, the
	// store's ping-lifetime values are removed in the same step.
	Snapshot(ctx context.Context, store string, clearPing bool) (map[string]*model.Metric, error)
	// ClearLifetime removes every value with the given lifetime in all stores.
	ClearLifetime(ctx context.Context, lifetime model.Lifetime) error
	// ClearAll removes everything.
	ClearAll(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Merge combines an incoming value with the existing one for the same
// metric and returns the value to keep. existing may be nil.
func Merge(existing, incoming *model.Metric) *model.Metric {
	if existing == nil || existing.Type != incoming.Type {
		return incoming.Clone()
	}
	if incoming.Type != model.Counter {
		return incoming.Clone()
	}

	merged := existing.Clone()
	merged.Lifetime = incoming.Lifetime
	var sum int64
	if existing.Delta != nil {
		sum = *existing.Delta
	}
	if incoming.Delta != nil {
		sum += *incoming.Delta
	}
	merged.Delta = &sum
	return merged
}
