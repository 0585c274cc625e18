// Package history keeps a log of completed shots in SQLite
package history

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Shot is one completed extraction
type Shot struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	Target  float32 // grams
	Weight  float32 // final grams after the drip delay
	Elapsed float32 // seconds the pump ran

	// the moment the pump stopped
	StopReason string
	StopWeight float32
	Predicted  float32
}

// Overshoot is the weight that landed after the pump stopped
func (s Shot) Overshoot() float32 {
	return s.Weight - s.StopWeight
}

// Deviation is how far the final weight is from the target
func (s Shot) Deviation() float32 {
	return s.Weight - s.Target
}

type DB struct {
	db *gorm.DB
}

// Open creates or opens the database at path
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("missing database path")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&Shot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &DB{db: db}, nil
}

// Add stores the shot and sets its ID
func (d *DB) Add(s *Shot) error {
	if err := d.db.Create(s).Error; err != nil {
		return fmt.Errorf("failed to add shot: %w", err)
	}
	return nil
}

// Recent returns up to n shots, newest first
func (d *DB) Recent(n int) ([]Shot, error) {
	var shots []Shot
	err := d.db.Order("created_at DESC").Order("id DESC").Limit(n).Find(&shots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get shots: %w", err)
	}
	return shots, nil
}

// MeanOvershoot averages the overshoot of the last n shots that stopped on the target weight. It is what
// the overshoot gain should have predicted
func (d *DB) MeanOvershoot(n int) (float32, int, error) {
	var shots []Shot
	err := d.db.Where("stop_reason = ?", "target").Order("id DESC").Limit(n).Find(&shots).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get shots: %w", err)
	}
	if len(shots) == 0 {
		return 0, 0, nil
	}

	var sum float32
	for _, s := range shots {
		sum += s.Overshoot()
	}
	return sum / float32(len(shots)), len(shots), nil
}

func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
