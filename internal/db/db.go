// Package db opens the database connection and keeps the schema migrated.
package db

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yaswanth65/houseway-backend/internal/models"
)

// Models enumerates everything AutoMigrate manages. Tests reuse this list
// against in-memory sqlite.
func Models() []any {
	return []any{
		&models.User{},
		&models.Project{},
		&models.ProjectAssignment{},
		&models.MaterialRequest{},
		&models.MaterialRequestItem{},
		&models.MaterialRequestVendor{},
		&models.Order{},
		&models.OrderItem{},
		&models.Message{},
		&models.MessageItem{},
		&models.ReadReceipt{},
		&models.VendorInvoice{},
		&models.VendorInvoiceItem{},
		&models.VendorInvoicePayment{},
	}
}

// ConnectAndMigrate dials postgres with retries and runs AutoMigrate.
func ConnectAndMigrate(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database DSN is empty, check environment configuration")
	}

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var db *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		logrus.WithError(err).Warn("retrying DB connection")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	logrus.WithField("dsn", maskDSN(dsn)).Info("database connected")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs AutoMigrate over every managed model.
func Migrate(db *gorm.DB) error {
	for _, m := range Models() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

var passwordRe = regexp.MustCompile(`(password=)([^\s]+)`)

func maskDSN(dsn string) string {
	masked := passwordRe.ReplaceAllString(dsn, `${1}***`)
	if u := strings.Index(masked, "://"); u >= 0 {
		if at := strings.Index(masked, "@"); at > u {
			masked = masked[:u+3] + "***" + masked[at:]
		}
	}
	return masked
}
