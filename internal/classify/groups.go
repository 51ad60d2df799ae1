package classify

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// GroupOther collects records without a category.
	GroupOther = "Outros"
	// GroupOtherDRE collects coded categories no group claims.
	GroupOtherDRE = "Outras Categorias DRE"
)

// GroupRule assigns a reporting group to categories. A category matches
// when it starts with one of Prefixes, contains one of Codes, or its
// lower-cased text contains one of Keywords.
type GroupRule struct {
	Name     string   `yaml:"name"`
	Prefixes []string `yaml:"prefixes"`
	Codes    []string `yaml:"codes"`
	Keywords []string `yaml:"keywords"`
}

func (g GroupRule) matches(category, lower string) bool {
	for _, p := range g.Prefixes {
		if strings.HasPrefix(category, p) {
			return true
		}
	}
	for _, c := range g.Codes {
		if strings.Contains(category, c) {
			return true
		}
	}
	for _, k := range g.Keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Groups is an ordered list of group rules. The first match wins.
type Groups struct {
	rules []GroupRule
}

var codedCategory = regexp.MustCompile(`^\d+\.`)

// DefaultGroups returns the breakdown groups used by the category chart.
func DefaultGroups() *Groups {
	return &Groups{rules: []GroupRule{
		{Name: "Receitas", Prefixes: []string{"1."}},
		{
			Name:     "Custos com Veículos",
			Prefixes: []string{"2.1.1."},
			Keywords: []string{"locação", "locacao", "manutenção", "manutencao", "ipva", "licenciamento", "dpvat"},
		},
		{Name: "Sinistros", Codes: []string{"2.1.1.13"}, Keywords: []string{"sinistro"}},
		{
			Name:     "Encargos Trabalhistas",
			Prefixes: []string{"2.2.2."},
			Keywords: []string{"fgts", "inss", "encargo"},
		},
		{
			Name:     "Salários",
			Prefixes: []string{"2.2.1."},
			Keywords: []string{"salário", "salario", "ordenado"},
		},
		{
			Name:     "Impostos e Taxas",
			Prefixes: []string{"2.2.6."},
			Keywords: []string{"iptu", "imposto", "taxa", "tributo", "contribuição"},
		},
		{Name: "Combustível", Keywords: []string{"combustível", "combustivel", "gasolina", "diesel"}},
		{Name: "Seguros", Keywords: []string{"seguro"}},
		{
			Name:     "Despesas Administrativas",
			Prefixes: []string{"2.2.3.", "2.2.4.", "2.2.5."},
			Keywords: []string{"administrativ", "escritório", "escritorio", "telefone", "internet", "energia", "aluguel"},
		},
		{
			Name:     "Despesas Operacionais",
			Prefixes: []string{"2.3."},
			Keywords: []string{"marketing", "publicidade", "intermediação", "intermediacao", "operacional"},
		},
	}}
}

// NewGroups validates a group table.
func NewGroups(rules []GroupRule) (*Groups, error) {
	out := make([]GroupRule, 0, len(rules))
	for i, r := range rules {
		if r.Name == "" {
			return nil, fmt.Errorf("group %d: empty name", i+1)
		}
		if len(r.Prefixes)+len(r.Codes)+len(r.Keywords) == 0 {
			return nil, fmt.Errorf("group %q: no prefixes, codes or keywords", r.Name)
		}
		for j, k := range r.Keywords {
			r.Keywords[j] = strings.ToLower(k)
		}
		out = append(out, r)
	}
	return &Groups{rules: out}, nil
}

// Group returns the reporting group of a category. Categories that match
// no rule keep their own name, unless they carry a numeric code.
func (g *Groups) Group(category string) string {
	if category == "" {
		return GroupOther
	}
	lower := strings.ToLower(category)
	for _, r := range g.rules {
		if r.matches(category, lower) {
			return r.Name
		}
	}
	if codedCategory.MatchString(category) {
		return GroupOtherDRE
	}
	return category
}
