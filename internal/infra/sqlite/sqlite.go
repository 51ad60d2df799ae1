// Package sqlite stores financial records in a local SQLite file through gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/logger"
	"github.com/dvloznov/dre-engine/internal/store"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	sqlitedriver "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Record is the table model for one financial record.
type Record struct {
	OwnerKey        string `gorm:"primaryKey"`
	Position        int    `gorm:"primaryKey;autoIncrement:false"`
	RecordType      string `gorm:"not null"`
	Status          string `gorm:"not null"`
	RawStatus       string
	EffectiveDate   string          `gorm:"index"` // YYYY-MM-DD, empty when unknown
	EffectiveAmount decimal.Decimal `gorm:"type:text;not null"`
	Description     string
	Category        string
	Account         string
	Contact         string
	TaxID           string
	LegalName       string
	PaymentMethod   string
	Notes           string
	CreationDate    string
	SavedAt         time.Time `gorm:"autoCreateTime"`
}

// TableName implements gorm's tabler.
func (Record) TableName() string {
	return "financial_records"
}

// Store is the SQLite RecordStore.
type Store struct {
	db   *gorm.DB
	opts store.BatchOptions
}

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string, verbose bool, opts store.BatchOptions) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("Open: create db dir: %w", err)
	}

	gormLogger := gormlogger.Default
	if !verbose {
		gormLogger = gormLogger.LogMode(gormlogger.Silent)
	}

	db, err := gorm.Open(sqlitedriver.Open(path), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("Open: open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("Open: get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxLifetime(time.Hour)

	_, _ = sqlDB.Exec("PRAGMA journal_mode = WAL;")
	_, _ = sqlDB.Exec("PRAGMA synchronous = NORMAL;")
	_, _ = sqlDB.Exec("PRAGMA busy_timeout = 5000;")

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("Open: migrate: %w", err)
	}
	return &Store{db: db, opts: opts}, nil
}

// SaveAll implements store.RecordStore.
func (s *Store) SaveAll(ctx context.Context, owner string, records []domain.FinancialRecord, progress store.ProgressFunc) error {
	owner = store.Owner(owner)
	db := s.db.WithContext(ctx)

	if err := db.Where("owner_key = ?", owner).Delete(&Record{}).Error; err != nil {
		return fmt.Errorf("SaveAll: clearing owner: %w", err)
	}

	err := store.WriteInBatches(ctx, records, s.opts, func(ctx context.Context, batch []domain.FinancialRecord, offset int) error {
		rows := make([]Record, len(batch))
		for i, r := range batch {
			rows[i] = toModel(owner, offset+i, r)
		}
		return s.db.WithContext(ctx).Create(&rows).Error
	}, IsTransient, progress)
	if err != nil {
		return fmt.Errorf("SaveAll: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("owner", owner).Int("records", len(records)).Msg("records saved")
	return nil
}

// LoadAll implements store.RecordStore.
func (s *Store) LoadAll(ctx context.Context, owner string) ([]domain.FinancialRecord, error) {
	var rows []Record
	err := s.db.WithContext(ctx).
		Where("owner_key = ?", store.Owner(owner)).
		Order("position").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("LoadAll: %w", err)
	}

	out := make([]domain.FinancialRecord, len(rows))
	for i, row := range rows {
		out[i] = fromModel(row)
	}
	return out, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsTransient reports SQLITE_BUSY and SQLITE_LOCKED.
func IsTransient(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked
	}
	return false
}

func toModel(owner string, position int, r domain.FinancialRecord) Record {
	return Record{
		OwnerKey:        owner,
		Position:        position,
		RecordType:      string(r.Type),
		Status:          string(r.Status),
		RawStatus:       r.RawStatus,
		EffectiveDate:   dateString(r.EffectiveDate),
		EffectiveAmount: decimal.NewFromFloat(r.EffectiveAmount),
		Description:     r.Description,
		Category:        r.Category,
		Account:         r.Account,
		Contact:         r.Contact,
		TaxID:           r.TaxID,
		LegalName:       r.LegalName,
		PaymentMethod:   r.PaymentMethod,
		Notes:           r.Notes,
		CreationDate:    dateString(r.CreationDate),
	}
}

func fromModel(m Record) domain.FinancialRecord {
	return domain.FinancialRecord{
		Type:            domain.RecordType(m.RecordType),
		Status:          domain.Status(m.Status),
		RawStatus:       m.RawStatus,
		EffectiveDate:   parseDate(m.EffectiveDate),
		EffectiveAmount: m.EffectiveAmount.InexactFloat64(),
		Description:     m.Description,
		Category:        m.Category,
		Account:         m.Account,
		Contact:         m.Contact,
		TaxID:           m.TaxID,
		LegalName:       m.LegalName,
		PaymentMethod:   m.PaymentMethod,
		Notes:           m.Notes,
		CreationDate:    parseDate(m.CreationDate),
	}
}

func dateString(d civil.Date) string {
	if !d.IsValid() {
		return ""
	}
	return d.String()
}

func parseDate(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}
	}
	return d
}

var _ store.RecordStore = (*Store)(nil)
