package metrics

import (
	"context"
	"fmt"
	"strconv"

	"github.com/and161185/glean-metrics/internal/errs"
	"github.com/and161185/glean-metrics/model"
	"github.com/and161185/glean-metrics/storage"
	"go.uber.org/zap"
)

// Registry builds instruments bound to one storage and upload state.
// Overrides maps a metric's full name to a disabled flag that replaces the
// declared one, which is how remotely configured switches reach a metric.
type Registry struct {
	store     storage.Storage
	state     model.UploadState
	overrides map[string]bool
	logger    *zap.SugaredLogger
}

func NewRegistry(store storage.Storage, state model.UploadState, overrides map[string]bool, logger *zap.SugaredLogger) *Registry {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	o := make(map[string]bool, len(overrides))
	for k, v := range overrides {
		o[k] = v
	}
	return &Registry{store: store, state: state, overrides: o, logger: logger}
}

func (r *Registry) instrument(cfg model.MetadataConfig) instrument {
	meta := model.NewCommonMetricData(cfg)
	if disabled, ok := r.overrides[meta.Fullname()]; ok && disabled != meta.Disabled() {
		r.logger.Debugw("metric disabled flag overridden", "metric", meta.Fullname(), "disabled", disabled)
		meta = meta.WithDisabled(disabled)
	}
	return instrument{meta: meta, store: r.store, state: r.state, logger: r.logger}
}

func (r *Registry) NewCounter(cfg model.MetadataConfig) *CounterMetric {
	return &CounterMetric{instrument: r.instrument(cfg)}
}

func (r *Registry) NewString(cfg model.MetadataConfig) *StringMetric {
	return &StringMetric{instrument: r.instrument(cfg)}
}

func (r *Registry) NewBoolean(cfg model.MetadataConfig) *BooleanMetric {
	return &BooleanMetric{instrument: r.instrument(cfg)}
}

// RecordRaw parses raw according to typ and records it through a freshly
// built instrument. Only malformed input is reported; a write refused by the
// recording gate is not an error.
func (r *Registry) RecordRaw(ctx context.Context, typ string, cfg model.MetadataConfig, raw string) error {
	switch model.MetricType(typ) {
	case model.Counter:
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || v <= 0 {
			return fmt.Errorf("%w: counter amount %q", errs.ErrInvalidValue, raw)
		}
		r.NewCounter(cfg).Add(ctx, int32(v))
	case model.String:
		r.NewString(cfg).Set(ctx, raw)
	case model.Boolean:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%w: boolean %q", errs.ErrInvalidValue, raw)
		}
		r.NewBoolean(cfg).Set(ctx, v)
	default:
		return fmt.Errorf("%w: %q", errs.ErrInvalidType, typ)
	}
	return nil
}
