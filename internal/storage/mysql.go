package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"nihilism/server/internal/config"
	"nihilism/server/internal/models"
)

// GormStore persists snapshots in MySQL through gorm.
type GormStore struct {
	db *gorm.DB
}

func NewMySQLStore(cfg config.MySQLConfig, debug bool) (*GormStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("mysql dsn is required")
	}

	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return NewGormStore(db)
}

// NewGormStore wraps an open gorm handle and migrates the snapshot table.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&models.PlayerSnapshot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate snapshots: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Put(ctx context.Context, p *models.Player) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	row := models.PlayerSnapshot{
		ID:            p.ID,
		FormatVersion: FormatVersion,
		Payload:       string(data),
		LoopNumber:    p.CurrentLoop.Number,
		NihilismScore: p.Memory.NihilismScore,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"format_version", "payload", "loop_number", "nihilism_score", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, playerID string) (*models.Player, error) {
	var row models.PlayerSnapshot
	err := s.db.WithContext(ctx).First(&row, "id = ?", playerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return Decode([]byte(row.Payload))
}

func (s *GormStore) List(ctx context.Context) ([]string, error) {
	ids := []string{}
	if err := s.db.WithContext(ctx).Model(&models.PlayerSnapshot{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return ids, nil
}

func (s *GormStore) Delete(ctx context.Context, playerID string) error {
	if err := s.db.WithContext(ctx).Delete(&models.PlayerSnapshot{}, "id = ?", playerID).Error; err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
