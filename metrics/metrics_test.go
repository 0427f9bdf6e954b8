package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/and161185/glean-metrics/internal/errs"
	"github.com/and161185/glean-metrics/internal/glean"
	"github.com/and161185/glean-metrics/model"
	"github.com/and161185/glean-metrics/storage/inmemory"
	"github.com/and161185/glean-metrics/storage/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type uploadFlag struct{ v atomic.Bool }

func (u *uploadFlag) IsUploadEnabled() bool { return u.v.Load() }

func newUpload(enabled bool) *uploadFlag {
	u := &uploadFlag{}
	u.v.Store(enabled)
	return u
}

func counterCfg() model.MetadataConfig {
	return model.MetadataConfig{Name: "requests", Category: "network", SendInPings: []string{"metrics", "baseline"}}
}

func TestCounter_Add(t *testing.T) {
	ctx := context.Background()
	st := inmemory.NewMemStorage(nil)
	reg := NewRegistry(st, newUpload(true), nil, nil)

	c := reg.NewCounter(counterCfg())
	c.Add(ctx, 2)
	c.Add(ctx, 3)

	got, err := c.TestGetValue(ctx, "")
	require.NoError(t, err)
	require.Equal(t, int64(5), got)

	got, err = c.TestGetValue(ctx, "baseline")
	require.NoError(t, err)
	require.Equal(t, int64(5), got)

	m, err := st.Get(ctx, "metrics", "network.requests")
	require.NoError(t, err)
	require.Equal(t, model.LifetimePing, m.Lifetime)
}

func TestCounter_NonPositiveDropped(t *testing.T) {
	ctx := context.Background()
	core, obs := observer.New(zap.WarnLevel)
	reg := NewRegistry(inmemory.NewMemStorage(nil), newUpload(true), nil, zap.New(core).Sugar())

	c := reg.NewCounter(counterCfg())
	c.Add(ctx, 0)
	c.Add(ctx, -1)

	_, err := c.TestGetValue(ctx, "")
	require.ErrorIs(t, err, errs.ErrMetricNotFound)
	require.Equal(t, 2, obs.Len())
}

func TestRecording_Gated(t *testing.T) {
	tests := []struct {
		name     string
		disabled bool
		upload   bool
	}{
		{"metric_disabled", true, true},
		{"upload_disabled", false, false},
		{"both_off", true, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			store := mocks.NewMockStorage(ctrl)
			store.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

			reg := NewRegistry(store, newUpload(tc.upload), nil, nil)
			cfg := counterCfg()
			cfg.Disabled = tc.disabled

			ctx := context.Background()
			reg.NewCounter(cfg).Add(ctx, 1)
			reg.NewString(cfg).Set(ctx, "v")
			reg.NewBoolean(cfg).Set(ctx, true)
		})
	}
}

func TestRecording_FollowsUploadToggle(t *testing.T) {
	ctx := context.Background()
	up := newUpload(false)
	reg := NewRegistry(inmemory.NewMemStorage(nil), up, nil, nil)
	c := reg.NewCounter(counterCfg())

	c.Add(ctx, 1)
	_, err := c.TestGetValue(ctx, "")
	require.ErrorIs(t, err, errs.ErrMetricNotFound)

	up.v.Store(true)
	c.Add(ctx, 1)
	got, err := c.TestGetValue(ctx, "")
	require.NoError(t, err)
	require.Equal(t, int64(1), got)
}

func TestRecording_StorageErrorLogged(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStorage(ctrl)
	store.EXPECT().
		Record(gomock.Any(), []string{"metrics", "baseline"}, gomock.Any()).
		Return(errors.New("disk full"))

	core, obs := observer.New(zap.ErrorLevel)
	reg := NewRegistry(store, newUpload(true), nil, zap.New(core).Sugar())
	reg.NewCounter(counterCfg()).Add(context.Background(), 1)

	require.Equal(t, 1, obs.FilterMessage("failed to record metric").Len())
}

func TestString_Set(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(inmemory.NewMemStorage(nil), newUpload(true), nil, nil)
	s := reg.NewString(model.MetadataConfig{Name: "channel", Category: "app", SendInPings: []string{"metrics"}, Lifetime: model.LifetimeApplication})

	s.Set(ctx, "beta")
	s.Set(ctx, "release")
	got, err := s.TestGetValue(ctx, "metrics")
	require.NoError(t, err)
	require.Equal(t, "release", got)

	s.Set(ctx, strings.Repeat("x", 150))
	got, err = s.TestGetValue(ctx, "metrics")
	require.NoError(t, err)
	require.Len(t, got, maxStringLength)
}

func TestBoolean_Set(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(inmemory.NewMemStorage(nil), newUpload(true), nil, nil)
	b := reg.NewBoolean(model.MetadataConfig{Name: "first_run", Category: "", SendInPings: []string{"metrics"}})

	b.Set(ctx, true)
	got, err := b.TestGetValue(ctx, "")
	require.NoError(t, err)
	require.True(t, got)
	require.Equal(t, ".first_run", b.Metadata().Fullname())

	b.Set(ctx, false)
	got, err = b.TestGetValue(ctx, "")
	require.NoError(t, err)
	require.False(t, got)
}

func TestTestGetValue_NoPings(t *testing.T) {
	reg := NewRegistry(inmemory.NewMemStorage(nil), newUpload(true), nil, nil)
	c := reg.NewCounter(model.MetadataConfig{Name: "n", Category: "c"})
	c.Add(context.Background(), 1)

	_, err := c.TestGetValue(context.Background(), "")
	require.ErrorIs(t, err, errs.ErrMetricNotFound)
}

func TestTestGetValue_WrongType(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(inmemory.NewMemStorage(nil), newUpload(true), nil, nil)
	cfg := model.MetadataConfig{Name: "n", Category: "c", SendInPings: []string{"metrics"}}

	reg.NewString(cfg).Set(ctx, "text")
	_, err := reg.NewCounter(cfg).TestGetValue(ctx, "")
	require.ErrorIs(t, err, errs.ErrMetricNotFound)
}

func TestRegistry_Overrides(t *testing.T) {
	ctx := context.Background()
	overrides := map[string]bool{"network.requests": true, "app.channel": false}
	reg := NewRegistry(inmemory.NewMemStorage(nil), newUpload(true), overrides, nil)

	c := reg.NewCounter(counterCfg())
	require.True(t, c.Metadata().Disabled())
	c.Add(ctx, 1)
	_, err := c.TestGetValue(ctx, "")
	require.ErrorIs(t, err, errs.ErrMetricNotFound)

	s := reg.NewString(model.MetadataConfig{Name: "channel", Category: "app", SendInPings: []string{"metrics"}, Disabled: true})
	require.False(t, s.Metadata().Disabled())
	s.Set(ctx, "nightly")
	got, err := s.TestGetValue(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "nightly", got)

	overrides["network.requests"] = false
	require.True(t, reg.NewCounter(counterCfg()).Metadata().Disabled())
}

func TestRegistry_RecordRaw(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		raw     string
		wantErr error
	}{
		{"counter", "counter", "3", nil},
		{"counter_negative", "counter", "-3", errs.ErrInvalidValue},
		{"counter_float", "counter", "1.5", errs.ErrInvalidValue},
		{"counter_overflow", "counter", "9999999999", errs.ErrInvalidValue},
		{"string", "string", "hello", nil},
		{"boolean", "boolean", "true", nil},
		{"boolean_bad", "boolean", "maybe", errs.ErrInvalidValue},
		{"unknown_type", "gauge", "1", errs.ErrInvalidType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reg := NewRegistry(inmemory.NewMemStorage(nil), newUpload(true), nil, nil)
			err := reg.RecordRaw(context.Background(), tc.typ, counterCfg(), tc.raw)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRegistry_RecordRawGatedIsNotError(t *testing.T) {
	reg := NewRegistry(inmemory.NewMemStorage(nil), newUpload(false), nil, nil)
	require.NoError(t, reg.RecordRaw(context.Background(), "counter", counterCfg(), "1"))
}

// stallingStore holds the first Record call until release is closed.
type stallingStore struct {
	*inmemory.MemStorage
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *stallingStore) Record(ctx context.Context, stores []string, m *model.Metric) error {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return s.MemStorage.Record(ctx, stores, m)
}

func TestRecording_InFlightWriteClearedByDisable(t *testing.T) {
	ctx := context.Background()
	st := &stallingStore{
		MemStorage: inmemory.NewMemStorage(nil),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	state := glean.New(glean.Options{UploadEnabled: true}, st, nil)
	require.NoError(t, state.Initialize(ctx))

	c := NewRegistry(st, state, nil, nil).NewCounter(model.MetadataConfig{Name: "n", Category: "c", SendInPings: []string{"metrics"}})

	added := make(chan struct{})
	go func() {
		c.Add(ctx, 1)
		close(added)
	}()
	<-st.entered

	disabled := make(chan error, 1)
	go func() { disabled <- state.SetUploadEnabled(ctx, false) }()

	select {
	case <-disabled:
		t.Fatal("upload disabled while a recording was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(st.release)
	<-added
	require.NoError(t, <-disabled)

	require.NoError(t, state.SetUploadEnabled(ctx, true))
	snap, err := state.CollectPing(ctx, "metrics")
	require.NoError(t, err)
	require.Empty(t, snap)
}
