package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/config"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

// GetDB returns the shared handle set by SetupDatabase.
func GetDB() *gorm.DB {
	return DB
}

// SetupDatabase opens the configured database with retries and migrates the schema.
func SetupDatabase(cfg config.DBConfig, dev bool) {
	var err error
	gormCfg := &gorm.Config{}
	if !dev {
		gormCfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(Dialector(cfg), gormCfg)
		if err == nil {
			if err = DB.AutoMigrate(models.All()...); err != nil {
				log.Errorf("[Database] AutoMigrate failed: %v", err)
			}
			return
		}

		log.Warnf("[Database] Failed to connect (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	panic(err)
}

// Dialector picks the GORM driver for DB_DRIVER.
func Dialector(cfg config.DBConfig) gorm.Dialector {
	if strings.ToLower(cfg.Driver) == "postgres" {
		return postgres.Open(PostgresDSN(cfg))
	}
	return mysql.New(mysql.Config{
		DSN:                       MySQLDSN(cfg),
		DefaultStringSize:         256,
		DisableDatetimePrecision:  true,
		DontSupportRenameIndex:    true,
		DontSupportRenameColumn:   true,
		SkipInitializeWithVersion: false,
	})
}

func MySQLDSN(cfg config.DBConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User, cfg.Password, cfg.Host, cfg.DBPort(), cfg.Name)
}

func PostgresDSN(cfg config.DBConfig) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.DBPort(), cfg.SSLMode)
}

// MigrateURL is the golang-migrate database URL for the configured driver.
func MigrateURL(cfg config.DBConfig) string {
	if strings.ToLower(cfg.Driver) == "postgres" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			cfg.User, cfg.Password, cfg.Host, cfg.DBPort(), cfg.Name, cfg.SSLMode)
	}
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		cfg.User, cfg.Password, cfg.Host, cfg.DBPort(), cfg.Name)
}
