package main

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/and161185/glean-metrics/internal/utils"
	"github.com/and161185/glean-metrics/model"
	"github.com/and161185/glean-metrics/storage/inmemory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingStore struct {
	calls atomic.Int32
	err   error
}

func (c *countingStore) SaveToFile(ctx context.Context, filePath string) error {
	c.calls.Add(1)
	return c.err
}

func TestRunPersistence_SavesOnShutdown(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "metrics.json")

	st := inmemory.NewMemStorage(nil)
	m := &model.Metric{ID: "net.requests", Type: model.Counter, Delta: utils.I64Ptr(3)}
	require.NoError(t, st.Record(ctx, []string{"metrics"}, m))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		runPersistence(runCtx, st, path, 0, zap.NewNop().Sugar())
		close(done)
	}()
	cancel()
	<-done

	restored := inmemory.NewMemStorage(nil)
	require.NoError(t, restored.LoadFromFile(ctx, path))
	got, err := restored.Get(ctx, "metrics", "net.requests")
	require.NoError(t, err)
	require.Equal(t, int64(3), *got.Delta)
}

func TestRunPersistence_Periodic(t *testing.T) {
	st := &countingStore{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runPersistence(ctx, st, "unused", 1, zap.NewNop().Sugar())
		close(done)
	}()

	require.Eventually(t, func() bool { return st.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	cancel()
	<-done
	require.GreaterOrEqual(t, st.calls.Load(), int32(2))
}

func TestRunPersistence_LogsErrors(t *testing.T) {
	core, obs := observer.New(zap.ErrorLevel)
	st := &countingStore{err: errors.New("read-only fs")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runPersistence(ctx, st, "x", 0, zap.New(core).Sugar())

	require.Equal(t, 1, obs.FilterMessage("failed to save metrics").Len())
}
