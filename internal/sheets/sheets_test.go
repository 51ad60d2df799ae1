package sheets

import (
	"errors"
	"testing"

	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		contentType string
		want        Kind
		wantErr     bool
	}{
		{name: "csv extension", file: "extrato.csv", want: KindCSV},
		{name: "upper case extension", file: "EXTRATO.XLSX", want: KindXLSX},
		{name: "legacy workbook", file: "dre.xls", want: KindXLS},
		{name: "mime fallback", file: "upload", contentType: "text/csv; charset=utf-8", want: KindCSV},
		{name: "ooxml mime", file: "blob", contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", want: KindXLSX},
		{name: "pdf rejected", file: "extrato.pdf", contentType: "application/pdf", wantErr: true},
		{name: "no hints", file: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectKind(tt.file, tt.contentType)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrUnsupportedFormat) {
					t.Fatalf("DetectKind() error = %v, want ErrUnsupportedFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectKind() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectKind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want [][]any
	}{
		{
			name: "comma separated with quotes",
			data: []byte("Tipo,Descrição,Valor efetivo\nReceita,\"Aluguel, sala 2\",\"1.000,00\"\n"),
			want: [][]any{
				{"Tipo", "Descrição", "Valor efetivo"},
				{"Receita", "Aluguel, sala 2", "1.000,00"},
			},
		},
		{
			name: "semicolon sniffed",
			data: []byte("Tipo;Valor efetivo;Categoria\nDespesa;-200,50;2.1.1 Combustível\n"),
			want: [][]any{
				{"Tipo", "Valor efetivo", "Categoria"},
				{"Despesa", "-200,50", "2.1.1 Combustível"},
			},
		},
		{
			name: "bom stripped and blank lines skipped",
			data: append([]byte{0xEF, 0xBB, 0xBF}, []byte("Tipo\tValor efetivo\n\nReceita\t10\n")...),
			want: [][]any{
				{"Tipo", "Valor efetivo"},
				{"Receita", "10"},
			},
		},
		{
			name: "windows-1252 decoded",
			data: []byte("Descri\xe7\xe3o;Tipo\nCombust\xedvel;Despesa\n"),
			want: [][]any{
				{"Descrição", "Tipo"},
				{"Combustível", "Despesa"},
			},
		},
		{
			name: "ragged rows",
			data: []byte("a,b,c\n1,2\n"),
			want: [][]any{
				{"a", "b", "c"},
				{"1", "2"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables, err := Read(KindCSV, tt.data)
			if err != nil {
				t.Fatalf("Read() unexpected error: %v", err)
			}
			if len(tables) != 1 {
				t.Fatalf("Read() returned %d tables, want 1", len(tables))
			}
			if diff := cmp.Diff(tt.want, tables[0].Rows); diff != "" {
				t.Errorf("rows mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		line string
		want rune
	}{
		{"a,b,c", ','},
		{"a;b;c", ';'},
		{"\"x;y\",b,c", ','},
		{"a|b|c", '|'},
		{"single", ','},
		{"", ','},
	}
	for _, tt := range tests {
		if got := sniffDelimiter([]byte(tt.line)); got != tt.want {
			t.Errorf("sniffDelimiter(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func newWorkbook(t *testing.T, sheets map[string][][]any, order []string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("SetSheetName: %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("NewSheet: %v", err)
		}
		for ri, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, ri+1)
			if err != nil {
				t.Fatalf("CoordinatesToCellName: %v", err)
			}
			values := row
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				t.Fatalf("SetSheetRow: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestReadXLSX_TypedCellsAcrossSheets(t *testing.T) {
	data := newWorkbook(t, map[string][][]any{
		"Janeiro": {
			{"Tipo", "Valor efetivo", "Data efetiva", "Código"},
			{"Receita", 1000.5, 45366, "1000"},
		},
		"Fevereiro": {
			{"Tipo", "Valor efetivo"},
			{"Despesa", -200},
		},
	}, []string{"Janeiro", "Fevereiro"})

	tables, err := Read(KindXLSX, data)
	if err != nil {
		t.Fatalf("Read() unexpected error: %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("Read() returned %d tables, want 2", len(tables))
	}

	if tables[0].Name != "Janeiro" || tables[1].Name != "Fevereiro" {
		t.Errorf("sheet names = %q, %q", tables[0].Name, tables[1].Name)
	}

	want := []any{"Receita", 1000.5, 45366.0, "1000"}
	if diff := cmp.Diff(want, tables[0].Rows[1]); diff != "" {
		t.Errorf("first data row mismatch (-want +got):\n%s", diff)
	}
	if got := tables[1].Rows[1][1]; got != -200.0 {
		t.Errorf("second sheet amount = %#v, want -200.0", got)
	}
}

func TestReadXLSX_SkipsLeadingBlankRows(t *testing.T) {
	data := newWorkbook(t, map[string][][]any{
		"Plan1": {
			{},
			{"Tipo", "Valor efetivo"},
			{"Receita", 10},
		},
	}, []string{"Plan1"})

	tables, err := Read(KindXLSX, data)
	if err != nil {
		t.Fatalf("Read() unexpected error: %v", err)
	}
	if got := tables[0].Rows[0][0]; got != "Tipo" {
		t.Errorf("header first cell = %#v, want Tipo", got)
	}
	if tables[0].StartLine != 2 {
		t.Errorf("StartLine = %d, want 2", tables[0].StartLine)
	}
}

func TestReadXLSX_InvalidData(t *testing.T) {
	if _, err := Read(KindXLSX, []byte("not a zip")); err == nil {
		t.Error("expected error for invalid workbook")
	}
}

func TestReadXLS_InvalidData(t *testing.T) {
	if _, err := Read(KindXLS, []byte("not a compound file")); err == nil {
		t.Error("expected error for invalid workbook")
	}
}

func TestNormalizeHeader(t *testing.T) {
	// "Descrição" with combining characters.
	decomposed := "Descric\u0327a\u0303o "
	got := normalizeHeader([]any{decomposed, 1.0})
	if got[0] != "Descrição" {
		t.Errorf("normalizeHeader() = %q, want composed form", got[0])
	}
	if got[1] != 1.0 {
		t.Errorf("non-string header cell changed: %#v", got[1])
	}
}
