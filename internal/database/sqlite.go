package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/bank-tracker/internal/models"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

var DB *gorm.DB

// Initialize opens the database, migrates the schema and runs data migrations.
// The handle is kept in DB for GetDB.
func Initialize(driver, dsn, logLevel string, ornaments OrnamentLookup) error {
	db, err := Open(driver, dsn, logLevel)
	if err != nil {
		return err
	}

	log.Println("Database connected successfully")

	if err := Migrate(db); err != nil {
		return err
	}

	if err := RunMigrations(db, ornaments); err != nil {
		return err
	}

	log.Println("Database migration completed")
	DB = db
	return nil
}

// Open connects to SQLite (default) or MySQL without touching the schema
func Open(driver, dsn, logLevel string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(parseLogLevel(logLevel)),
	}

	switch driver {
	case DriverMySQL:
		db, err := gorm.Open(mysql.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
		}
		return db, nil
	case DriverSQLite, "":
		db, err := gorm.Open(sqlite.Open(sqliteDSN(dsn)), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		// SQLite allows a single writer; one connection also keeps :memory: databases coherent
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Migrate creates or updates the bank tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Bank{},
		&models.BankItem{},
		&models.PriceSnapshot{},
		&models.CachedPriceFeed{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// sqliteDSN turns on foreign key enforcement so bank deletes cascade
func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "./bank_tracker.db"
	}
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
