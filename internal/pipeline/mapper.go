package pipeline

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/fields"
	"github.com/dvloznov/dre-engine/internal/logger"
	"github.com/dvloznov/dre-engine/internal/normalize"
)

// DefaultLocation is the calendar used for dates and for "now".
const DefaultLocation = "America/Sao_Paulo"

// Mapper turns raw rows into financial records.
type Mapper struct {
	Resolver *fields.Resolver
	// Now returns the ingestion time. Missing dates default to its calendar
	// date in Location.
	Now      func() time.Time
	Location *time.Location
}

// NewMapper creates a mapper with the default header spellings. A nil
// location falls back to DefaultLocation, then UTC.
func NewMapper(resolver *fields.Resolver, loc *time.Location) *Mapper {
	if resolver == nil {
		resolver = fields.NewResolver()
	}
	if loc == nil {
		loc = loadDefaultLocation()
	}
	return &Mapper{Resolver: resolver, Now: time.Now, Location: loc}
}

func loadDefaultLocation() *time.Location {
	loc, err := time.LoadLocation(DefaultLocation)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (m *Mapper) location() *time.Location {
	if m.Location == nil {
		return time.UTC
	}
	return m.Location
}

func (m *Mapper) today() civil.Date {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	return civil.DateOf(now().In(m.location()))
}

func (m *Mapper) resolver() *fields.Resolver {
	if m.Resolver == nil {
		m.Resolver = fields.NewResolver()
	}
	return m.Resolver
}

// MapRow converts one row. index is the 1-based position of the row in the
// pool being mapped. Only an unresolvable type fails, as a *domain.RowError.
func (m *Mapper) MapRow(row fields.RawRow, index int) (domain.FinancialRecord, error) {
	r := m.resolver()

	rawType, _ := r.Resolve(row, fields.Type)
	typ, err := normalize.Type(rawType)
	if err != nil {
		return domain.FinancialRecord{}, &domain.RowError{
			Index: index,
			Sheet: row.Sheet,
			Line:  row.Line,
			Value: normalize.Text(rawType),
			Err:   err,
		}
	}

	text := func(f fields.Field) string {
		v, _ := r.Resolve(row, f)
		return normalize.Text(v)
	}
	date := func(f fields.Field) civil.Date {
		v, ok := r.Resolve(row, f)
		if !ok {
			return m.today()
		}
		if d, ok := normalize.Date(v, m.location()); ok {
			return d
		}
		return m.today()
	}

	rawStatus, _ := r.Resolve(row, fields.Status)
	amount, _ := r.Resolve(row, fields.EffectiveAmount)

	return domain.FinancialRecord{
		Type:            typ,
		Status:          normalize.Status(rawStatus),
		RawStatus:       normalize.Text(rawStatus),
		EffectiveDate:   date(fields.EffectiveDate),
		EffectiveAmount: normalize.Amount(amount),
		Description:     text(fields.Description),
		Category:        text(fields.Category),
		Account:         text(fields.Account),
		Contact:         text(fields.Contact),
		TaxID:           text(fields.TaxID),
		LegalName:       text(fields.LegalName),
		PaymentMethod:   text(fields.PaymentMethod),
		Notes:           text(fields.Notes),
		CreationDate:    date(fields.CreationDate),
	}, nil
}

// MapRows maps rows in order and stops at the first failure. On error no
// records are returned.
func (m *Mapper) MapRows(ctx context.Context, rows []fields.RawRow) ([]domain.FinancialRecord, error) {
	log := logger.FromContext(ctx)

	if len(rows) > 0 {
		if _, ok := m.resolver().ResolveKey(rows[0], fields.Type); !ok {
			headers := rows[0].Keys()
			log.Warn().
				Strs("headers", headers).
				Str("closest", m.resolver().Suggest(headers, fields.Type)).
				Msg("type column not found by name, relying on cell content")
		}
	}

	records := make([]domain.FinancialRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := m.MapRow(row, i+1)
		if err != nil {
			log.Error().
				Err(err).
				Int("rows_seen", i+1).
				Int("rows_kept", len(records)).
				Int("rows_rejected", 1).
				Msg("row rejected, aborting ingestion")
			return nil, err
		}
		records = append(records, rec)
	}

	log.Info().
		Int("rows_seen", len(rows)).
		Int("rows_kept", len(records)).
		Int("rows_rejected", 0).
		Msg("rows mapped")
	return records, nil
}
