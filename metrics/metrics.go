// Package metrics provides the metric instruments applications declare and
// record through. Every recording call consults the instrument's
// model.CommonMetricData gate first and is silently dropped when it refuses.
package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/glean-metrics/internal/errs"
	"github.com/and161185/glean-metrics/model"
	"github.com/and161185/glean-metrics/storage"
	"go.uber.org/zap"
)

// maxStringLength is the limit, in bytes, for string metric values.
const maxStringLength = 100

// recordLocker is implemented by upload states that must not change while
// a recording is between its gate check and its storage write.
type recordLocker interface {
	RecordLocked(fn func())
}

// instrument is the state shared by every metric type.
type instrument struct {
	meta   model.CommonMetricData
	store  storage.Storage
	state  model.UploadState
	logger *zap.SugaredLogger
}

// Metadata returns the instrument's identity and recording policy.
func (i *instrument) Metadata() model.CommonMetricData {
	return i.meta
}

// gated runs fn when the recording gate allows it. The gate check and fn
// happen under the upload state's record lock when it has one.
func (i *instrument) gated(fn func()) {
	run := func() {
		if i.meta.ShouldRecord(i.state) {
			fn()
		}
	}
	if l, ok := i.state.(recordLocker); ok {
		l.RecordLocked(run)
		return
	}
	run()
}

func (i *instrument) record(ctx context.Context, m *model.Metric) {
	m.ID = i.meta.Fullname()
	m.Lifetime = i.meta.Lifetime()

	if err := i.store.Record(ctx, i.meta.StorageNames(), m); err != nil {
		i.logger.Errorw("failed to record metric", "metric", m.ID, "error", err)
	}
}

// testGet reads the stored value from ping, defaulting to the first
// destination ping.
func (i *instrument) testGet(ctx context.Context, ping string) (*model.Metric, error) {
	if ping == "" {
		names := i.meta.StorageNames()
		if len(names) == 0 {
			return nil, errs.ErrMetricNotFound
		}
		ping = names[0]
	}

	m, err := i.store.Get(ctx, ping, i.meta.Fullname())
	if err != nil {
		if errors.Is(err, errs.ErrMetricNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get %s from %s: %w", i.meta.Fullname(), ping, err)
	}
	return m, nil
}
