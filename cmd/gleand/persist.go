package main

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type fileStore interface {
	SaveToFile(ctx context.Context, filePath string) error
}

// runPersistence saves the store every interval seconds and once more when
// ctx is done. A non-positive interval only saves on shutdown.
func runPersistence(ctx context.Context, st fileStore, path string, interval int, logger *zap.SugaredLogger) {
	save := func(ctx context.Context) {
		if err := st.SaveToFile(ctx, path); err != nil {
			logger.Errorw("failed to save metrics", "path", path, "error", err)
		}
	}

	if interval > 0 {
		t := time.NewTicker(time.Duration(interval) * time.Second)
		defer t.Stop()
	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-t.C:
				save(ctx)
			}
		}
	} else {
		<-ctx.Done()
	}

	save(context.Background())
}
