package fields

import (
	"fmt"
	"strings"

	"github.com/dvloznov/dre-engine/internal/normalize"
	"github.com/schollz/closestmatch"
)

// Field is a logical column of a financial record.
type Field string

const (
	Type            Field = "tipo"
	Status          Field = "status"
	EffectiveDate   Field = "dataEfetiva"
	EffectiveAmount Field = "valorEfetivo"
	Description     Field = "descricao"
	Category        Field = "categoria"
	Account         Field = "conta"
	Contact         Field = "contato"
	TaxID           Field = "cpfCnpj"
	LegalName       Field = "razaoSocial"
	PaymentMethod   Field = "forma"
	Notes           Field = "observacoes"
	CreationDate    Field = "dataCriacao"
)

// All lists every field in record order.
var All = []Field{
	Type, Status, EffectiveDate, EffectiveAmount, Description, Category,
	Account, Contact, TaxID, LegalName, PaymentMethod, Notes, CreationDate,
}

// ParseField accepts a field name as used in configuration files.
func ParseField(name string) (Field, error) {
	for _, f := range All {
		if strings.EqualFold(string(f), name) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", name)
}

// Strategy describes how a field is found in a row.
type Strategy struct {
	// Candidates are exact, case-sensitive header spellings tried in order.
	Candidates []string
	// Fragments are alternative sets of lower-case substrings. A header
	// matches when it contains every fragment of one set.
	Fragments [][]string
	// SniffType enables content sniffing for type keywords.
	SniffType bool
}

func defaultStrategies() map[Field]Strategy {
	return map[Field]Strategy{
		Type: {
			Candidates: []string{"Tipo", "tipo", "TIPO", "Type", "type"},
			Fragments:  [][]string{{"tipo"}},
			SniffType:  true,
		},
		Status: {
			Candidates: []string{"Status", "status", "STATUS"},
			Fragments:  [][]string{{"status"}},
		},
		EffectiveDate: {
			Candidates: []string{"Data efetiva", "data efetiva", "dataEfetiva", "Data Efetiva", "DATA EFETIVA"},
			Fragments:  [][]string{{"data", "efet"}},
		},
		EffectiveAmount: {
			Candidates: []string{"Valor efetivo", "valor efetivo", "valorEfetivo", "Valor Efetivo", "VALOR EFETIVO"},
			Fragments:  [][]string{{"valor", "efet"}},
		},
		Description: {
			Candidates: []string{"Descrição", "descricao", "Descricao", "Description", "description"},
			Fragments:  [][]string{{"descri"}},
		},
		Category: {
			Candidates: []string{"Categoria", "categoria", "Category", "category"},
			Fragments:  [][]string{{"categ"}},
		},
		// "conta" is a prefix of "contato", so Account has no fragments.
		Account: {
			Candidates: []string{"Conta", "conta", "Account", "account"},
		},
		Contact: {
			Candidates: []string{"Contato", "contato", "Contact", "contact"},
			Fragments:  [][]string{{"contat"}},
		},
		TaxID: {
			Candidates: []string{"CPF/CNPJ", "cpfCnpj", "cpf_cnpj", "CPF CNPJ"},
			Fragments:  [][]string{{"cpf"}, {"cnpj"}},
		},
		LegalName: {
			Candidates: []string{"Razão social", "razaoSocial", "razao_social", "Razao Social"},
			Fragments:  [][]string{{"raz", "social"}},
		},
		PaymentMethod: {
			Candidates: []string{"Forma", "forma", "Form", "form"},
			Fragments:  [][]string{{"forma"}},
		},
		Notes: {
			Candidates: []string{"Observações", "observacoes", "Observacoes", "Notes", "notes"},
			Fragments:  [][]string{{"observ"}},
		},
		CreationDate: {
			Candidates: []string{"Data de criação", "dataCriacao", "data_criacao", "Data Criacao"},
			Fragments:  [][]string{{"data", "cria"}},
		},
	}
}

// typeKeywords map content keywords to canonical type labels, in match order.
var typeKeywords = []struct {
	keyword string
	label   string
}{
	{"receita", "Receita"},
	{"despesa", "Despesa"},
	{"custo", "Custo"},
}

// Resolver finds fields in rows. The zero value is not usable; call NewResolver.
type Resolver struct {
	strategies map[Field]Strategy
}

// NewResolver returns a resolver with the historical header spellings.
func NewResolver() *Resolver {
	return &Resolver{strategies: defaultStrategies()}
}

// AddCandidates appends extra exact header spellings for a field. They are
// tried after the built-in spellings.
func (r *Resolver) AddCandidates(f Field, names ...string) {
	s := r.strategies[f]
	s.Candidates = append(s.Candidates, names...)
	r.strategies[f] = s
}

// Strategy returns the resolution strategy for f.
func (r *Resolver) Strategy(f Field) Strategy {
	return r.strategies[f]
}

// Resolve returns the value of f in row, or false when no header or
// heuristic locates it.
func (r *Resolver) Resolve(row RawRow, f Field) (any, bool) {
	s := r.strategies[f]

	for _, name := range s.Candidates {
		if v, ok := row.Get(name); ok && !normalize.IsBlank(v) {
			return v, true
		}
	}

	if key, ok := matchFragments(row, s.Fragments); ok {
		v, _ := row.Get(key)
		return v, true
	}

	if s.SniffType {
		return sniffType(row)
	}
	return nil, false
}

// ResolveKey reports which header Resolve would read f from. It returns
// false when f is not backed by a header, including sniffed types.
func (r *Resolver) ResolveKey(row RawRow, f Field) (string, bool) {
	s := r.strategies[f]
	for _, name := range s.Candidates {
		if v, ok := row.Get(name); ok && !normalize.IsBlank(v) {
			return name, true
		}
	}
	return matchFragments(row, s.Fragments)
}

func matchFragments(row RawRow, sets [][]string) (string, bool) {
	if len(sets) == 0 {
		return "", false
	}
	for _, key := range row.keys {
		lower := strings.ToLower(key)
		for _, set := range sets {
			if containsAll(lower, set) && !normalize.IsBlank(row.values[key]) {
				return key, true
			}
		}
	}
	return "", false
}

func containsAll(s string, fragments []string) bool {
	for _, f := range fragments {
		if !strings.Contains(s, f) {
			return false
		}
	}
	return len(fragments) > 0
}

func sniffType(row RawRow) (any, bool) {
	for _, key := range row.keys {
		lower := strings.ToLower(normalize.Text(row.values[key]))
		for _, kw := range typeKeywords {
			if strings.Contains(lower, kw.keyword) {
				return kw.label, true
			}
		}
	}
	for _, key := range row.keys {
		lower := strings.ToLower(key)
		for _, kw := range typeKeywords {
			if strings.Contains(lower, kw.keyword) {
				return kw.label, true
			}
		}
	}
	return nil, false
}

// Suggest returns the header closest to the first spelling of f. It is a
// diagnostic for unresolved fields and never affects resolution.
func (r *Resolver) Suggest(headers []string, f Field) string {
	s := r.strategies[f]
	if len(headers) == 0 || len(s.Candidates) == 0 {
		return ""
	}

	byLower := make(map[string]string, len(headers))
	bag := make([]string, 0, len(headers))
	for _, h := range headers {
		lower := strings.ToLower(h)
		if _, seen := byLower[lower]; seen {
			continue
		}
		byLower[lower] = h
		bag = append(bag, lower)
	}

	cm := closestmatch.New(bag, []int{2, 3})
	return byLower[cm.Closest(strings.ToLower(s.Candidates[0]))]
}
