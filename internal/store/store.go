// Package store keeps a history of finished rounds.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RoundRecord is one finished round of one room.
type RoundRecord struct {
	ID       uint           `gorm:"primaryKey" json:"id"`
	RoomCode string         `gorm:"size:16;not null;index" json:"room_code"`
	Game     string         `gorm:"size:16;not null" json:"game"`
	Round    int            `gorm:"not null" json:"round"`
	Result   datatypes.JSON `json:"result"`
	At       time.Time      `gorm:"not null" json:"at"`
}

// NewRoundRecord encodes result as the record's JSON payload.
func NewRoundRecord(code, game string, round int, result any) (RoundRecord, error) {
	b, err := json.Marshal(result)
	if err != nil {
		return RoundRecord{}, fmt.Errorf("encode %s round %d result: %w", game, round, err)
	}
	return RoundRecord{
		RoomCode: code,
		Game:     game,
		Round:    round,
		Result:   datatypes.JSON(b),
		At:       time.Now().UTC(),
	}, nil
}

type Recorder interface {
	RecordRound(ctx context.Context, rec RoundRecord) error
}

// Gorm stores rounds in postgres.
type Gorm struct {
	db *gorm.DB
}

// OpenGorm connects to dsn and migrates the round_records table.
func OpenGorm(dsn string) (*Gorm, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewGorm(db)
}

func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&RoundRecord{}); err != nil {
		return nil, fmt.Errorf("migrate round records: %w", err)
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) RecordRound(ctx context.Context, rec RoundRecord) error {
	if err := g.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("record %s round %d: %w", rec.RoomCode, rec.Round, err)
	}
	return nil
}

// Rounds lists a room's records oldest first.
func (g *Gorm) Rounds(ctx context.Context, code string) ([]RoundRecord, error) {
	var recs []RoundRecord
	err := g.db.WithContext(ctx).Where("room_code = ?", code).Order("id").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list rounds of %s: %w", code, err)
	}
	return recs, nil
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Memory is a Recorder for tests and for running without a database.
type Memory struct {
	mu   sync.Mutex
	next uint
	recs []RoundRecord
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) RecordRound(ctx context.Context, rec RoundRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	rec.ID = m.next
	m.recs = append(m.recs, rec)
	return nil
}

func (m *Memory) Rounds(_ context.Context, code string) ([]RoundRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RoundRecord
	for _, r := range m.recs {
		if r.RoomCode == code {
			out = append(out, r)
		}
	}
	return slices.Clip(out), nil
}

func (m *Memory) Close() error { return nil }
