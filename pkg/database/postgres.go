package database

import (
	"time"

	"github.com/Eursukkul/attendance-service/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Fatal("failed to get sql.DB")
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(1 * time.Minute)

	if err := Migrate(db); err != nil {
		logrus.WithError(err).Fatal("failed to auto-migrate")
	}
	return db
}

// Migrate creates the schema and the partial indexes that back the
// one-successful-validation rule.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Event{},
		&models.TicketCategory{},
		&models.Member{},
		&models.Registration{},
		&models.RosterUpload{},
		&models.RosterEntry{},
		&models.Attendance{},
		&models.Ticket{},
		&models.TicketTransfer{},
	); err != nil {
		return err
	}

	for _, stmt := range []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_registration_valid
		ON attendance (registration_id)
		WHERE outcome = 'valid' AND registration_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_ticket_valid
		ON attendance (ticket_id)
		WHERE outcome = 'valid' AND ticket_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_pending_gateway
		ON tickets (created_at)
		WHERE payment_status = 'pending' AND payment_method = 'gateway'`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
