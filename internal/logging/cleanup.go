package logging

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/models"
)

const (
	cleanupInterval = 24 * time.Hour
	retentionDays   = 30
)

// StartCleanup prunes persisted log records on a daily schedule so the
// system_logs table written by PGHandler does not grow without bound.
// Close done to stop the goroutine.
func StartCleanup(db *gorm.DB, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				pruneOnce(db)
			case <-done:
				return
			}
		}
	}()
}

func pruneOnce(db *gorm.DB) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		slog.Error("log cleanup failed", "operation", "logging.cleanup", "error", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		slog.Info("log cleanup completed", "operation", "logging.cleanup", "deleted", result.RowsAffected)
	}
}
