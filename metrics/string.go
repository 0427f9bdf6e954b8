package metrics

import (
	"context"

	"github.com/and161185/glean-metrics/internal/errs"
	"github.com/and161185/glean-metrics/internal/utils"
	"github.com/and161185/glean-metrics/model"
)

// StringMetric stores the last text value set.
type StringMetric struct {
	instrument
}

// Set records value, truncated to 100 bytes.
func (s *StringMetric) Set(ctx context.Context, value string) {
	s.gated(func() {
		truncated := utils.TruncateUTF8(value, maxStringLength)
		if len(truncated) != len(value) {
			s.logger.Warnw("string value truncated", "metric", s.meta.Fullname(), "limit", maxStringLength)
		}
		s.record(ctx, &model.Metric{Type: model.String, Text: &truncated})
	})
}

func (s *StringMetric) TestGetValue(ctx context.Context, ping string) (string, error) {
	m, err := s.testGet(ctx, ping)
	if err != nil {
		return "", err
	}
	if m.Type != model.String || m.Text == nil {
		return "", errs.ErrMetricNotFound
	}
	return *m.Text, nil
}
