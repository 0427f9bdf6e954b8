package metrics

import (
	"context"

	"github.com/and161185/glean-metrics/internal/errs"
	"github.com/and161185/glean-metrics/internal/utils"
	"github.com/and161185/glean-metrics/model"
)

// CounterMetric accumulates positive integer amounts.
type CounterMetric struct {
	instrument
}

// Add increases the counter by amount. Non-positive amounts are dropped.
func (c *CounterMetric) Add(ctx context.Context, amount int32) {
	c.gated(func() {
		if amount <= 0 {
			c.logger.Warnw("counter amount must be positive", "metric", c.meta.Fullname(), "amount", amount)
			return
		}
		c.record(ctx, &model.Metric{Type: model.Counter, Delta: utils.I64Ptr(int64(amount))})
	})
}

// TestGetValue returns the stored count for ping (first destination when empty).
func (c *CounterMetric) TestGetValue(ctx context.Context, ping string) (int64, error) {
	m, err := c.testGet(ctx, ping)
	if err != nil {
		return 0, err
	}
	if m.Type != model.Counter || m.Delta == nil {
		return 0, errs.ErrMetricNotFound
	}
	return *m.Delta, nil
}
