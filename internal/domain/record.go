package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// RecordType is the accounting nature of a record.
type RecordType string

const (
	TypeRevenue RecordType = "Receita"
	TypeExpense RecordType = "Despesa"
	// TypeCost is a legacy label. Validation folds it into TypeExpense, but
	// records loaded from older stores may still carry it.
	TypeCost RecordType = "Custo"
)

// Status is the settlement state of a record.
type Status string

const (
	StatusPaid    Status = "Pago"
	StatusPending Status = "Pendente"
	StatusOverdue Status = "Atrasado"
)

// DefaultOwner is the owner key used when none is supplied.
const DefaultOwner = "anonymous"

// FinancialRecord is one normalized spreadsheet row.
// Records are values: they are created once by the mapper and never mutated.
type FinancialRecord struct {
	Type            RecordType `json:"tipo"`
	Status          Status     `json:"status"`
	RawStatus       string     `json:"statusOriginal,omitempty"`
	EffectiveDate   civil.Date `json:"dataEfetiva"`
	EffectiveAmount float64    `json:"valorEfetivo"`
	Description     string     `json:"descricao"`
	Category        string     `json:"categoria"`
	Account         string     `json:"conta"`
	Contact         string     `json:"contato"`
	TaxID           string     `json:"cpfCnpj"`
	LegalName       string     `json:"razaoSocial"`
	PaymentMethod   string     `json:"forma"`
	Notes           string     `json:"observacoes"`
	CreationDate    civil.Date `json:"dataCriacao"`
}

// MonthKey is a three-letter pt-BR month code.
type MonthKey string

// Months lists the month keys in calendar order.
var Months = [12]MonthKey{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}

// MonthKeyOf returns the key for a calendar month.
func MonthKeyOf(m time.Month) MonthKey {
	if m < time.January || m > time.December {
		return ""
	}
	return Months[m-1]
}

// Month returns the record's settlement month key.
func (r FinancialRecord) Month() MonthKey {
	return MonthKeyOf(r.EffectiveDate.Month)
}
