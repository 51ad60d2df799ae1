package classify

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		code string
		want Bucket
	}{
		{"1.1 Aluguel", BucketRevenue},
		{"1.2.3 Venda de ativos", BucketRevenue},
		{"2.1.1 Combustível", BucketCost},
		{"2.1.1.13 Sinistros", BucketCost},
		{"2.2.1 Salário", BucketExpense},
		{"2.3.4 Marketing", BucketExpense},
		{"2.4.1 Investimentos", BucketUnclassified},
		{"2. Saídas", BucketUnclassified},
		{"3.1 Transferências", BucketUnclassified},
		{"10.1 Outro plano", BucketUnclassified},
		{" 1.1 com espaço", BucketUnclassified},
		{"Aluguel", BucketUnclassified},
		{"", BucketUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := Classify(tt.code); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestClassify_DependsOnLeadingSegmentsOnly(t *testing.T) {
	prefixes := []string{"1.", "2.1.", "2.2.", "2.3.", "2.4.", "3."}
	suffixes := []string{"", "1", "1.2.3 Texto", "99 qualquer coisa"}

	for _, p := range prefixes {
		want := Classify(p)
		for _, s := range suffixes {
			if got := Classify(p + s); got != want {
				t.Errorf("Classify(%q) = %q, want %q like %q", p+s, got, want, p)
			}
		}
	}
}

func TestNewRules_Validation(t *testing.T) {
	if _, err := NewRules([]Rule{{Prefix: "", Bucket: BucketRevenue}}); err == nil {
		t.Error("expected error for empty prefix")
	}
	if _, err := NewRules([]Rule{{Prefix: "1.", Bucket: "lucro"}}); err == nil {
		t.Error("expected error for unknown bucket")
	}
}

func TestParseFile(t *testing.T) {
	data := []byte(`
rules:
  - prefix: "3."
    bucket: revenue
  - prefix: "4.1."
    bucket: cost
groups:
  - name: Frota
    prefixes: ["4.1."]
    keywords: ["Pneu"]
`)

	rules, groups, err := ParseFile(data)
	if err != nil {
		t.Fatalf("ParseFile() unexpected error: %v", err)
	}

	if got := rules.Classify("3.1 Receita"); got != BucketRevenue {
		t.Errorf("Classify(3.1) = %q, want revenue", got)
	}
	if got := rules.Classify("1.1 Aluguel"); got != BucketUnclassified {
		t.Errorf("Classify(1.1) = %q, file rules should replace defaults", got)
	}
	if got := groups.Group("Troca de pneus"); got != "Frota" {
		t.Errorf("Group() = %q, want keyword match lower-cased", got)
	}
}

func TestParseFile_EmptyKeepsDefaults(t *testing.T) {
	rules, groups, err := ParseFile([]byte("{}"))
	if err != nil {
		t.Fatalf("ParseFile() unexpected error: %v", err)
	}
	if len(rules.List()) != len(DefaultRules().List()) {
		t.Errorf("expected default rules")
	}
	if got := groups.Group("1.1 Aluguel"); got != "Receitas" {
		t.Errorf("Group() = %q, want default groups", got)
	}
}

func TestParseFile_RejectsUnknownKeys(t *testing.T) {
	_, _, err := ParseFile([]byte("regras: []\n"))
	if err == nil || !strings.Contains(err.Error(), "ParseFile") {
		t.Errorf("ParseFile() error = %v, want strict decoding error", err)
	}
}

func TestGroups_Group(t *testing.T) {
	g := DefaultGroups()

	tests := []struct {
		category string
		want     string
	}{
		{"1.1 Aluguel", "Receitas"},
		{"2.1.1.05 Manutenção", "Custos com Veículos"},
		{"Sinistro frota", "Sinistros"},
		{"2.2.2.01 FGTS", "Encargos Trabalhistas"},
		{"2.2.1.01 Salário", "Salários"},
		{"2.2.6.02 IPTU", "Impostos e Taxas"},
		{"Gasolina", "Combustível"},
		{"Seguro predial", "Seguros"},
		{"2.2.3.01 Material de escritório", "Despesas Administrativas"},
		{"2.3.1 Marketing", "Despesas Operacionais"},
		{"2.4.9 Diversos", "Outras Categorias DRE"},
		{"Doações", "Doações"},
		{"", "Outros"},
	}

	for _, tt := range tests {
		if got := g.Group(tt.category); got != tt.want {
			t.Errorf("Group(%q) = %q, want %q", tt.category, got, tt.want)
		}
	}
}
