package database

import (
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BizDesk/app/models"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

// GetDB returns the shared connection, nil before SetupDatabase ran.
func GetDB() *gorm.DB {
	return DB
}

// SetupDatabase connects to MySQL with retries and migrates the schema.
// dsn example: "user:pass@tcp(127.0.0.1:3306)/bizdesk?charset=utf8mb4&parseTime=True&loc=UTC"
func SetupDatabase(dsn string) {
	var err error
	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{})
		if err == nil {
			if err = DB.AutoMigrate(
				&models.User{},
				&models.EntitlementRecord{},
				&models.BillingWebhookEvent{},
			); err != nil {
				log.Error().Err(err).Msg("database auto-migrate failed")
			}
			return
		}

		log.Warn().Err(err).Int("try", i+1).Int("max", maxRetries).Msg("failed to connect to database")
		if i < maxRetries-1 {
			log.Info().Dur("delay", retryDelay).Msg("retrying database connection")
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}
