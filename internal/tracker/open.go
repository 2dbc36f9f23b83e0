package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/replift/internal/analytics"
	"github.com/claude/replift/internal/config"
	"github.com/claude/replift/internal/memo"
	"github.com/claude/replift/internal/metrics"
	"github.com/claude/replift/internal/storage"
)

// Open builds a Service from configuration: the storage backend, the metric
// cache reporting to m, the document store and the engine. The caller closes
// the returned Blobs on shutdown.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Manager, log *slog.Logger) (*Service, storage.Blobs, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	blobs, err := storage.OpenBlobs(ctx, cfg.Storage, log)
	if err != nil {
		return nil, nil, fmt.Errorf("opening storage: %w", err)
	}

	cache := memo.New(memo.WithObserver(m))
	store, err := storage.Open(ctx, blobs, cfg.Storage.Key, cache, log)
	if err != nil {
		blobs.Close()
		return nil, nil, err
	}
	return New(store, analytics.New(store, cache, loc), m, log), blobs, nil
}
