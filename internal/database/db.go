package database

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

// NowUTC is the clock used for gorm's automatic timestamps
func NowUTC() time.Time {
	return time.Now().UTC()
}

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string, logLevel logger.LogLevel) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: NowUTC,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established")
	return nil
}

// Models lists every table owned by the service, in migration order
func Models() []interface{} {
	return []interface{}{
		&SlackSettings{},
		&CorrelationSettings{},
		&Profile{},
		&Incident{},
		&IncidentNote{},
		&ZoneNotification{},
		&ZoneNotificationDelivery{},
	}
}

// AutoMigrate runs database migrations
func AutoMigrate() error {
	log.Println("Running database migrations...")

	if err := DB.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// InitializeDefaults creates default records if they don't exist
func InitializeDefaults() error {
	log.Println("Initializing default database records...")

	if _, err := GetOrCreateSlackSettings(DB); err != nil {
		return fmt.Errorf("failed to create default slack settings: %w", err)
	}

	if _, err := GetOrCreateCorrelationSettings(DB); err != nil {
		return fmt.Errorf("failed to create default correlation settings: %w", err)
	}

	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// Close closes the database connection
func Close() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetOrCreateSlackSettings retrieves or creates Slack settings (singleton, disabled by default)
func GetOrCreateSlackSettings(db *gorm.DB) (*SlackSettings, error) {
	var settings SlackSettings
	err := db.First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = SlackSettings{Enabled: false}
		if err := db.Create(&settings).Error; err != nil {
			return nil, err
		}
		log.Println("Created default Slack settings (disabled)")
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateSlackSettings updates Slack settings in the database
func UpdateSlackSettings(db *gorm.DB, settings *SlackSettings) error {
	return db.Save(settings).Error
}

// GetOrCreateCorrelationSettings retrieves or creates correlation settings (singleton).
// This function accepts a db parameter (rather than using the global DB) to support
// dependency injection, transaction contexts, and easier testing.
func GetOrCreateCorrelationSettings(db *gorm.DB) (*CorrelationSettings, error) {
	var settings CorrelationSettings
	result := db.First(&settings)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		settings = *NewDefaultCorrelationSettings()
		if err := db.Create(&settings).Error; err != nil {
			return nil, err
		}
	} else if result.Error != nil {
		return nil, result.Error
	}
	return &settings, nil
}

// UpdateCorrelationSettings updates correlation settings.
// Uses Save() so zero values (disabled flags) are persisted.
func UpdateCorrelationSettings(db *gorm.DB, settings *CorrelationSettings) error {
	return db.Save(settings).Error
}
