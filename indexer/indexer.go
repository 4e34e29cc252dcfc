// Package indexer persists every emitted event record to a relational store
// for external monitoring and audit queries.
package indexer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"prizepool/core/events"
	"prizepool/core/types"
)

// EventRow is one persisted event record. Attributes are stored as a JSON
// document.
type EventRow struct {
	ID         uint   `gorm:"primaryKey"`
	Type       string `gorm:"index"`
	Attributes string
	CreatedAt  time.Time
}

// TableName pins the table name regardless of gorm's pluralisation settings.
func (EventRow) TableName() string { return "events" }

type recordSource interface {
	Event() *types.Event
}

// Indexer writes event records through gorm. It satisfies events.Emitter so
// it can join the engines' emitter chain.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to the store named by dsn. A postgres:// DSN selects the
// Postgres driver; anything else is treated as a SQLite path.
func Open(dsn string, logger *slog.Logger) (*Indexer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("indexer: open %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(&EventRow{}); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return &Indexer{db: db, logger: logger}, nil
}

// Emit implements events.Emitter. Persistence failures are logged, never
// propagated: indexing must not abort ledger operations.
func (ix *Indexer) Emit(evt events.Event) {
	if ix == nil || evt == nil {
		return
	}
	source, ok := evt.(recordSource)
	if !ok {
		return
	}
	record := source.Event()
	if record == nil {
		return
	}
	attrs, err := json.Marshal(record.Attributes)
	if err != nil {
		ix.logger.Error("indexer: encode attributes", "type", record.Type, "err", err)
		return
	}
	row := EventRow{Type: record.Type, Attributes: string(attrs)}
	if err := ix.db.Create(&row).Error; err != nil {
		ix.logger.Error("indexer: persist event", "type", record.Type, "err", err)
	}
}

// Recent returns the newest events, most recent first.
func (ix *Indexer) Recent(limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []EventRow
	err := ix.db.Order("id desc").Limit(limit).Find(&rows).Error
	return rows, err
}

// CountByType returns how many events of one type have been recorded.
func (ix *Indexer) CountByType(eventType string) (int64, error) {
	var count int64
	err := ix.db.Model(&EventRow{}).Where("type = ?", eventType).Count(&count).Error
	return count, err
}

// Close releases the underlying database connection.
func (ix *Indexer) Close() error {
	sqlDB, err := ix.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
