package postgres

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

var columns = []string{
	"owner_key", "position",
	"record_type", "status", "raw_status",
	"effective_date", "effective_amount",
	"description", "category", "account", "contact",
	"tax_id", "legal_name", "payment_method", "notes",
	"creation_date",
}

func rowValues(owner string, position int, r domain.FinancialRecord) []any {
	return []any{
		owner, int32(position),
		string(r.Type), string(r.Status), r.RawStatus,
		toDate(r.EffectiveDate), toNumeric(r.EffectiveAmount),
		r.Description, r.Category, r.Account, r.Contact,
		r.TaxID, r.LegalName, r.PaymentMethod, r.Notes,
		toDate(r.CreationDate),
	}
}

func scanRecord(row pgx.CollectableRow) (domain.FinancialRecord, error) {
	var (
		r                  domain.FinancialRecord
		recordType, status string
		effective, created pgtype.Date
		amount             pgtype.Numeric
	)
	err := row.Scan(
		&recordType, &status, &r.RawStatus,
		&effective, &amount,
		&r.Description, &r.Category, &r.Account, &r.Contact,
		&r.TaxID, &r.LegalName, &r.PaymentMethod, &r.Notes,
		&created,
	)
	if err != nil {
		return domain.FinancialRecord{}, err
	}
	r.Type = domain.RecordType(recordType)
	r.Status = domain.Status(status)
	r.EffectiveDate = fromDate(effective)
	r.CreationDate = fromDate(created)
	r.EffectiveAmount, err = fromNumeric(amount)
	return r, err
}

func toDate(d civil.Date) pgtype.Date {
	if !d.IsValid() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

func fromDate(d pgtype.Date) civil.Date {
	if !d.Valid {
		return civil.Date{}
	}
	return civil.DateOf(d.Time)
}

func toNumeric(f float64) pgtype.Numeric {
	d := decimal.NewFromFloat(f)
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) (float64, error) {
	if !n.Valid {
		return 0, nil
	}
	f, err := n.Float64Value()
	if err != nil {
		return 0, err
	}
	return f.Float64, nil
}
