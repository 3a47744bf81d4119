package storage

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/palmsuites/invoicegen/internal/config"
	"github.com/palmsuites/invoicegen/internal/logger"
)

const janitorInterval = 12 * time.Hour

// StartJanitor prunes stale uploads and period directories in the
// background. A zero max age disables pruning entirely; the source
// system kept everything, so that is the default.
func StartJanitor(ctx context.Context, ret config.RetentionConfig, st config.StorageConfig, log *logger.Logger) {
	if ret.MaxAgeDays <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(janitorInterval)
		defer ticker.Stop()
		for {
			pruneOnce(ret, st, log)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func pruneOnce(ret config.RetentionConfig, st config.StorageConfig, log *logger.Logger) {
	cutoff := time.Now().AddDate(0, 0, -ret.MaxAgeDays)
	for _, dir := range []string{st.UploadsDir, st.OutputDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			info, err := e.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if err := os.RemoveAll(path); err != nil {
				log.Warnw("retention prune failed", "path", path, "error", err)
				continue
			}
			log.Infow("pruned stale artifact", "path", path, "age_days", int(time.Since(info.ModTime()).Hours()/24))
		}
	}
}
