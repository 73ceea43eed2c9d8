package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/guimove/capviz/internal/ledger"
)

// SnapshotRow is the saved snapshot header. Only one row is kept.
type SnapshotRow struct {
	ID          uint `gorm:"primaryKey"`
	LastSavedAt time.Time
	CreatedAt   time.Time
}

func (SnapshotRow) TableName() string { return "ledger_snapshots" }

// MigrationRow is one ledger entry of the saved snapshot.
type MigrationRow struct {
	ID         string `gorm:"primaryKey"`
	SnapshotID uint   `gorm:"index"`
	Position   int
	VMID       string `gorm:"index"`
	VMName     string

	SourceClusterID   string
	SourceClusterName string
	SourceHostID      string
	SourceHostName    string

	DestinationClusterID   string
	DestinationClusterName string
	DestinationHostID      string
	DestinationHostName    string

	Timestamp time.Time
	Status    string `gorm:"index"`
}

func (MigrationRow) TableName() string { return "ledger_migrations" }

// SQLiteStore keeps the snapshot in a local SQLite database.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (and migrates) the database at path. If path is a
// directory, the database is created inside it as capviz.db.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, "capviz.db")
	} else if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.AutoMigrate(&SnapshotRow{}, &MigrationRow{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Name() string { return "sqlite" }

// Save replaces the stored snapshot in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap ledger.Snapshot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&MigrationRow{}).Error; err != nil {
			return fmt.Errorf("clearing migrations: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&SnapshotRow{}).Error; err != nil {
			return fmt.Errorf("clearing snapshots: %w", err)
		}

		row := SnapshotRow{LastSavedAt: snap.LastSavedAt.UTC()}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("creating snapshot: %w", err)
		}
		if len(snap.Migrations) == 0 {
			return nil
		}

		rows := make([]MigrationRow, len(snap.Migrations))
		for i, m := range snap.Migrations {
			rows[i] = toRow(row.ID, i, m)
		}
		if err := tx.CreateInBatches(rows, 200).Error; err != nil {
			return fmt.Errorf("creating migrations: %w", err)
		}
		return nil
	})
}

// Load returns the latest snapshot, or nil when the database is empty.
func (s *SQLiteStore) Load(ctx context.Context) (*ledger.Snapshot, error) {
	db := s.db.WithContext(ctx)

	var row SnapshotRow
	if err := db.Order("id DESC").First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	var rows []MigrationRow
	if err := db.Where("snapshot_id = ?", row.ID).Order("position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	snap := &ledger.Snapshot{
		Migrations:  make([]ledger.Migration, 0, len(rows)),
		LastSavedAt: row.LastSavedAt.UTC(),
	}
	for _, r := range rows {
		snap.Migrations = append(snap.Migrations, fromRow(r))
	}
	return snap, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRow(snapshotID uint, pos int, m ledger.Migration) MigrationRow {
	return MigrationRow{
		ID:                     m.ID,
		SnapshotID:             snapshotID,
		Position:               pos,
		VMID:                   m.VMID,
		VMName:                 m.VMName,
		SourceClusterID:        m.SourceClusterID,
		SourceClusterName:      m.SourceClusterName,
		SourceHostID:           m.SourceHostID,
		SourceHostName:         m.SourceHostName,
		DestinationClusterID:   m.DestinationClusterID,
		DestinationClusterName: m.DestinationClusterName,
		DestinationHostID:      m.DestinationHostID,
		DestinationHostName:    m.DestinationHostName,
		Timestamp:              m.Timestamp.UTC(),
		Status:                 string(m.Status),
	}
}

func fromRow(r MigrationRow) ledger.Migration {
	return ledger.Migration{
		ID:                     r.ID,
		VMID:                   r.VMID,
		VMName:                 r.VMName,
		SourceClusterID:        r.SourceClusterID,
		SourceClusterName:      r.SourceClusterName,
		SourceHostID:           r.SourceHostID,
		SourceHostName:         r.SourceHostName,
		DestinationClusterID:   r.DestinationClusterID,
		DestinationClusterName: r.DestinationClusterName,
		DestinationHostID:      r.DestinationHostID,
		DestinationHostName:    r.DestinationHostName,
		Timestamp:              r.Timestamp.UTC(),
		Status:                 ledger.Status(r.Status),
	}
}
