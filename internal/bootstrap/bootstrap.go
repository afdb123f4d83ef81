// Package bootstrap wires a Tracker from configuration. The server and the
// CLI share it.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/interntrack/tracker/internal/application/repository"
	"github.com/interntrack/tracker/internal/application/service"
	"github.com/interntrack/tracker/internal/config"
	"github.com/interntrack/tracker/internal/storage"
	"github.com/interntrack/tracker/pkg/logger"
)

// Tracker opens the configured store and loads the collection. Changes are
// logged at debug level. The returned func closes the store.
func Tracker(ctx context.Context, cfg *config.Config) (*service.Tracker, func() error, error) {
	repo, closeFn, err := repository.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}

	var opts []service.Option
	if cfg.MinIO.Enabled() {
		archive, err := storage.NewExportArchive(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("export archive disabled: %v", err)
		} else {
			logger.Infof("archiving exports to bucket %s", archive.Bucket())
			opts = append(opts, service.WithArchiver(archive))
		}
	}
	tr := service.NewTracker(ctx, repo, opts...)
	tr.Subscribe(func(ev service.Event) {
		logger.Debugf("collection %s: version %d, %d applications", ev.Kind, ev.Version, ev.Size)
	})
	return tr, closeFn, nil
}
