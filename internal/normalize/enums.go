package normalize

import (
	"fmt"
	"strings"

	"github.com/dvloznov/dre-engine/internal/domain"
)

// Type validates a record type. It is the only normalizer that fails:
// the type drives classification and must not silently default.
func Type(v any) (domain.RecordType, error) {
	raw := Text(v)
	if raw == "" {
		return "", fmt.Errorf("%w: type not informed", domain.ErrInvalidType)
	}

	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "receita"):
		return domain.TypeRevenue, nil
	case strings.Contains(lower, "despesa"):
		return domain.TypeExpense, nil
	case strings.Contains(lower, "custo"):
		return domain.TypeExpense, nil
	}
	return "", fmt.Errorf("%w: %q (expected Receita, Despesa or Custo)", domain.ErrInvalidType, raw)
}

// Status maps a status cell to a settlement state, defaulting to Pendente.
func Status(v any) domain.Status {
	lower := strings.ToLower(Text(v))
	switch {
	case strings.Contains(lower, "pago"):
		return domain.StatusPaid
	case strings.Contains(lower, "pendente"):
		return domain.StatusPending
	case strings.Contains(lower, "atrasado"):
		return domain.StatusOverdue
	}
	return domain.StatusPending
}
