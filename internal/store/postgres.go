package store

import (
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/TehSN/ocd-project/internal/config"
)

// StateBlob is the one-row-per-namespace table backing the Blob interface
// on PostgreSQL. The whole application state lives in the Data column.
type StateBlob struct {
	Key       string         `gorm:"primaryKey;size:128"`
	Data      datatypes.JSON `gorm:"type:json"`
	UpdatedAt time.Time
}

// Connect opens a GORM database connection using APP_DATABASE_URL
// (PostgreSQL URL) and ensures the blob table exists.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		return nil, errors.New("APP_DATABASE_URL is required (PostgreSQL URL)")
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil, errors.New("APP_DATABASE_URL must be a postgres:// or postgresql:// URL")
	}

	// PrepareStmt: true prevents the GORM postgres migrator from forcing simple protocol
	// for "SELECT * FROM table LIMIT 1", which would otherwise trigger "insufficient arguments".
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{PrepareStmt: true})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&StateBlob{}); err != nil {
		return nil, err
	}

	return db, nil
}

// GormBlob adapts a GORM connection to the Blob interface.
type GormBlob struct {
	db *gorm.DB
}

func NewGormBlob(db *gorm.DB) *GormBlob {
	return &GormBlob{db: db}
}

func (g *GormBlob) Read(key string) ([]byte, bool, error) {
	var row StateBlob
	err := g.db.Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(row.Data), true, nil
}

func (g *GormBlob) Write(key string, data []byte) error {
	row := StateBlob{Key: key, Data: datatypes.JSON(data)}
	return g.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&row).Error
}

func (g *GormBlob) Delete(key string) error {
	return g.db.Where("key = ?", key).Delete(&StateBlob{}).Error
}
