package importer

import (
	"context"
	"time"

	"github.com/fuhsing/sqlingest/internal/logging"
)

// Watch rescans the watch directory on the configured interval until ctx is
// cancelled. Files already in flight are skipped, so overlapping scans are
// harmless.
func (s *Service) Watch(ctx context.Context) {
	logger := logging.FromContext(ctx)
	logger.Info("watcher started",
		"dir", s.cfg.WatchDir,
		"interval", s.cfg.ScanInterval,
	)

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher stopped")
			return
		case <-ticker.C:
			jobIDs, err := s.ScanOnce(ctx)
			if err != nil {
				logger.Warn("scan failed", "error", err)
				continue
			}
			if len(jobIDs) > 0 {
				logger.Info("scan started imports", "jobs", len(jobIDs))
			}
		}
	}
}
