package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"appraisal/server/internal/models"
)

// Database is the organization rate preset store
type Database struct {
	sqlDB  *sql.DB
	db     *gorm.DB
	logger *logrus.Logger
}

// NewDatabase opens the SQLite file at dbPath, creating its directory when needed
func NewDatabase(dbPath string, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer
	sqlDB.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db, err := gorm.Open(&sqlite.Dialector{Conn: sqlDB}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	return &Database{sqlDB: sqlDB, db: db, logger: logger}, nil
}

// MigrateSchema creates or updates the preset table
func (d *Database) MigrateSchema() error {
	if err := d.db.AutoMigrate(&models.RatePreset{}); err != nil {
		return fmt.Errorf("failed to migrate rate_presets: %w", err)
	}
	return nil
}

// GetRatePresets returns the stored presets of an organization keyed by property type
func (d *Database) GetRatePresets(ctx context.Context, organizationID string) (map[models.PropertyType]models.DefaultRates, error) {
	var rows []models.RatePreset
	err := d.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("property_type").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query rate presets: %w", err)
	}

	presets := make(map[models.PropertyType]models.DefaultRates, len(rows))
	for _, row := range rows {
		presets[row.PropertyType] = row.Rates
	}
	return presets, nil
}

// SaveRatePresets upserts a batch of presets in one transaction
func (d *Database) SaveRatePresets(ctx context.Context, batch []models.RateSaveRequest) error {
	if len(batch) == 0 {
		return nil
	}

	rows := make([]models.RatePreset, 0, len(batch))
	for _, req := range batch {
		if !req.PropertyType.IsValid() {
			return fmt.Errorf("failed to save rate preset %q: %w", req.PropertyType, models.ErrInvalidPropertyType)
		}
		rows = append(rows, models.RatePreset{
			OrganizationID: req.OrganizationID,
			PropertyType:   req.PropertyType,
			Rates:          req.Rates,
		})
	}

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}, {Name: "property_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"rates", "updated_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("failed to upsert rate presets: %w", err)
	}

	d.logger.WithField("count", len(rows)).Debug("Upserted rate presets")
	return nil
}

// SeedRatePresets inserts presets an organization does not have yet and returns how many were added
func (d *Database) SeedRatePresets(ctx context.Context, organizationID string, presets map[models.PropertyType]models.DefaultRates) (int, error) {
	if len(presets) == 0 {
		return 0, nil
	}

	rows := make([]models.RatePreset, 0, len(presets))
	for pt, r := range presets {
		rows = append(rows, models.RatePreset{OrganizationID: organizationID, PropertyType: pt, Rates: r})
	}

	result := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to seed rate presets: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

// DeleteRatePreset removes one stored preset
func (d *Database) DeleteRatePreset(ctx context.Context, organizationID string, pt models.PropertyType) error {
	result := d.db.WithContext(ctx).
		Where("organization_id = ? AND property_type = ?", organizationID, pt).
		Delete(&models.RatePreset{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete rate preset: %w", result.Error)
	}
	return nil
}

// GetDB returns the gorm handle
func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Close() error {
	return d.sqlDB.Close()
}
