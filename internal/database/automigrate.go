package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"onboarding-forms-api/internal/domain"
)

// Models lists every persisted domain model in migration order
func Models() []interface{} {
	return []interface{}{
		&domain.Form{},
		&domain.FormVersion{},
		&domain.Submission{},
		&domain.Notification{},
		&domain.Attachment{},
	}
}

// AutoMigrate creates or updates the tables of every model, logging each one
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	migrator := db.Migrator()
	for _, m := range Models() {
		existed := migrator.HasTable(m)
		if err := db.AutoMigrate(m); err != nil {
			log.Error("Failed to migrate table",
				zap.String("model", fmt.Sprintf("%T", m)),
				zap.Bool("table_existed", existed),
				zap.Error(err),
			)
			return fmt.Errorf("failed to migrate %T: %w", m, err)
		}
		log.Debug("Migrated table",
			zap.String("model", fmt.Sprintf("%T", m)),
			zap.Bool("was_existing", existed),
		)
	}
	return nil
}

// AutoMigrateWithRetry retries AutoMigrate with linear backoff
func AutoMigrateWithRetry(db *gorm.DB, log *zap.Logger, maxRetries int) error {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = AutoMigrate(db, log); err == nil {
			return nil
		}
		if attempt < maxRetries {
			backoff := time.Duration(attempt) * time.Second
			log.Warn("Migration attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			time.Sleep(backoff)
		}
	}
	return fmt.Errorf("migration failed after %d attempts: %w", maxRetries, err)
}
