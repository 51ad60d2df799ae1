package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// NUMERIC columns hold at most nine fractional digits.
const numericScale = 9

// RecordRow is one financial record in the records table.
type RecordRow struct {
	OwnerKey string `bigquery:"owner_key"` // REQUIRED
	SaveID   string `bigquery:"save_id"`   // REQUIRED
	Position int64  `bigquery:"position"`  // REQUIRED, order within the save

	RecordType string              `bigquery:"record_type"` // REQUIRED
	Status     string              `bigquery:"status"`      // REQUIRED
	RawStatus  bigquery.NullString `bigquery:"raw_status"`  // NULLABLE

	EffectiveDate   bigquery.NullDate `bigquery:"effective_date"`   // NULLABLE
	EffectiveAmount *big.Rat          `bigquery:"effective_amount"` // REQUIRED NUMERIC

	Description   string `bigquery:"description"`
	Category      string `bigquery:"category"`
	Account       string `bigquery:"account"`
	Contact       string `bigquery:"contact"`
	TaxID         string `bigquery:"tax_id"`
	LegalName     string `bigquery:"legal_name"`
	PaymentMethod string `bigquery:"payment_method"`
	Notes         string `bigquery:"notes"`

	CreationDate bigquery.NullDate `bigquery:"creation_date"` // NULLABLE

	SavedTS time.Time `bigquery:"saved_ts"` // REQUIRED
}

// NewRecordRow converts a record for insertion.
func NewRecordRow(owner, saveID string, position int, r domain.FinancialRecord, saved time.Time) *RecordRow {
	return &RecordRow{
		OwnerKey:        owner,
		SaveID:          saveID,
		Position:        int64(position),
		RecordType:      string(r.Type),
		Status:          string(r.Status),
		RawStatus:       nullString(r.RawStatus),
		EffectiveDate:   nullDate(r.EffectiveDate),
		EffectiveAmount: decimal.NewFromFloat(r.EffectiveAmount).Round(numericScale).Rat(),
		Description:     r.Description,
		Category:        r.Category,
		Account:         r.Account,
		Contact:         r.Contact,
		TaxID:           r.TaxID,
		LegalName:       r.LegalName,
		PaymentMethod:   r.PaymentMethod,
		Notes:           r.Notes,
		CreationDate:    nullDate(r.CreationDate),
		SavedTS:         saved,
	}
}

// Record converts a stored row back into a record.
func (row *RecordRow) Record() domain.FinancialRecord {
	var amount float64
	if row.EffectiveAmount != nil {
		amount, _ = row.EffectiveAmount.Float64()
	}
	return domain.FinancialRecord{
		Type:            domain.RecordType(row.RecordType),
		Status:          domain.Status(row.Status),
		RawStatus:       row.RawStatus.StringVal,
		EffectiveDate:   dateOf(row.EffectiveDate),
		EffectiveAmount: amount,
		Description:     row.Description,
		Category:        row.Category,
		Account:         row.Account,
		Contact:         row.Contact,
		TaxID:           row.TaxID,
		LegalName:       row.LegalName,
		PaymentMethod:   row.PaymentMethod,
		Notes:           row.Notes,
		CreationDate:    dateOf(row.CreationDate),
	}
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func nullDate(d civil.Date) bigquery.NullDate {
	return bigquery.NullDate{Date: d, Valid: d.IsValid()}
}

func dateOf(d bigquery.NullDate) civil.Date {
	if !d.Valid {
		return civil.Date{}
	}
	return d.Date
}
