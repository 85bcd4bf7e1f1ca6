package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	// cgo-free driver registered as "sqlite"
	_ "modernc.org/sqlite"
)

// BoardRecord is the SQL row form of Record.
type BoardRecord struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RowCount      int            `gorm:"column:row_count;not null" json:"rows"`
	ColCount      int            `gorm:"column:col_count;not null" json:"cols"`
	Cells         datatypes.JSON `gorm:"column:cells;not null" json:"cells"`
	Generation    uint64         `gorm:"column:generation;not null;default:0" json:"generation"`
	SchemaVersion int            `gorm:"column:schema_version;not null" json:"schema_version"`
	CreatedAt     time.Time      `gorm:"column:created_at;not null;index" json:"created_at"`
	SavedAt       time.Time      `gorm:"column:saved_at;not null" json:"saved_at"`
}

func (BoardRecord) TableName() string { return "board_snapshot" }

// GormStore upserts one row per board. Boards are never deleted, so the
// table always holds the latest saved state of every board ever created.
type GormStore struct {
	db     *gorm.DB
	driver string
}

const gormBatchSize = 200

func newGormLogger() gormLogger.Interface {
	return gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// OpenSQLite opens a SQLite database through the pure-Go driver.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("sqlite dsn is required")
	}
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY and
	// keeps ":memory:" databases shared across calls.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func OpenPostgres(dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return db, nil
}

// NewGormStore migrates the snapshot table and returns a store over db.
func NewGormStore(db *gorm.DB, driver string) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("gorm db is required")
	}
	if err := db.AutoMigrate(&BoardRecord{}); err != nil {
		return nil, fmt.Errorf("migrate board_snapshot: %w", err)
	}
	return &GormStore{db: db, driver: driver}, nil
}

func (s *GormStore) Name() string { return s.driver }

func (s *GormStore) DB() *gorm.DB { return s.db }

func (s *GormStore) Load(ctx context.Context) (*Document, error) {
	var rows []BoardRecord
	if err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load board_snapshot: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoSnapshot
	}
	doc := &Document{Version: CurrentVersion, Boards: make([]Record, 0, len(rows))}
	for _, row := range rows {
		if row.SchemaVersion > CurrentVersion {
			return nil, fmt.Errorf("%w: row %s has version %d", ErrUnsupportedVersion, row.ID, row.SchemaVersion)
		}
		var cells [][]bool
		if err := json.Unmarshal(row.Cells, &cells); err != nil {
			return nil, fmt.Errorf("decode cells for %s: %w", row.ID, err)
		}
		if row.SavedAt.After(doc.SavedAt) {
			doc.SavedAt = row.SavedAt
		}
		doc.Boards = append(doc.Boards, Record{
			ID:         row.ID,
			Rows:       row.RowCount,
			Cols:       row.ColCount,
			Cells:      cells,
			Generation: row.Generation,
			CreatedAt:  row.CreatedAt.UTC(),
		})
	}
	return doc, nil
}

func (s *GormStore) Save(ctx context.Context, doc *Document) error {
	if doc == nil {
		return errors.New("nil snapshot document")
	}
	if len(doc.Boards) == 0 {
		return nil
	}
	savedAt := doc.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}
	rows := make([]BoardRecord, 0, len(doc.Boards))
	for _, rec := range doc.Boards {
		cells, err := json.Marshal(rec.Cells)
		if err != nil {
			return fmt.Errorf("encode cells for %s: %w", rec.ID, err)
		}
		rows = append(rows, BoardRecord{
			ID:            rec.ID,
			RowCount:      rec.Rows,
			ColCount:      rec.Cols,
			Cells:         datatypes.JSON(cells),
			Generation:    rec.Generation,
			SchemaVersion: CurrentVersion,
			CreatedAt:     rec.CreatedAt.UTC(),
			SavedAt:       savedAt,
		})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"row_count", "col_count", "cells", "generation", "schema_version", "saved_at",
			}),
		}).CreateInBatches(&rows, gormBatchSize).Error
	})
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
