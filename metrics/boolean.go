package metrics

import (
	"context"

	"github.com/and161185/glean-metrics/internal/errs"
	"github.com/and161185/glean-metrics/model"
)

// BooleanMetric stores the last flag value set.
type BooleanMetric struct {
	instrument
}

func (b *BooleanMetric) Set(ctx context.Context, value bool) {
	b.gated(func() {
		b.record(ctx, &model.Metric{Type: model.Boolean, Flag: &value})
	})
}

func (b *BooleanMetric) TestGetValue(ctx context.Context, ping string) (bool, error) {
	m, err := b.testGet(ctx, ping)
	if err != nil {
		return false, err
	}
	if m.Type != model.Boolean || m.Flag == nil {
		return false, errs.ErrMetricNotFound
	}
	return *m.Flag, nil
}
