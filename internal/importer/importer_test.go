package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/filestore"
	"github.com/dvloznov/dre-engine/internal/jobs"
	jobsmem "github.com/dvloznov/dre-engine/internal/jobs/inmemory"
	"github.com/dvloznov/dre-engine/internal/store"
	"github.com/dvloznov/dre-engine/internal/store/inmemory"
)

const csv = "Tipo;Categoria;Valor efetivo;Data efetiva;Status\n" +
	"Receita;1.1 Aluguel;1.000,00;05/03/2024;Pago\n" +
	"Despesa;2.1.1 Combustível;-200,00;10/03/2024;Pago\n" +
	"Despesa;2.2.1 Salário;-300,00;28/03/2024;Pago\n"

// mockRecordStore records calls and can fail on demand.
type mockRecordStore struct {
	SaveAllFunc func(ctx context.Context, owner string, records []domain.FinancialRecord, progress store.ProgressFunc) error
	saved       map[string][]domain.FinancialRecord
}

func (m *mockRecordStore) SaveAll(ctx context.Context, owner string, records []domain.FinancialRecord, progress store.ProgressFunc) error {
	if m.SaveAllFunc != nil {
		return m.SaveAllFunc(ctx, owner, records, progress)
	}
	if m.saved == nil {
		m.saved = make(map[string][]domain.FinancialRecord)
	}
	m.saved[owner] = records
	return nil
}

func (m *mockRecordStore) LoadAll(ctx context.Context, owner string) ([]domain.FinancialRecord, error) {
	return m.saved[owner], nil
}

func (m *mockRecordStore) Close() error { return nil }

func newService(t *testing.T, records store.RecordStore) (*Service, *filestore.Memory, *jobsmem.Store) {
	t.Helper()
	mem := filestore.NewMemory()
	js := jobsmem.NewStore()
	fetcher := filestore.NewFetcher(filestore.WithSource("mem", mem))
	return NewService(fetcher, nil, records, js), mem, js
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	records := inmemory.NewStore(store.BatchOptions{Size: 2})
	svc, mem, js := newService(t, records)

	uri := mem.Put(filestore.File{Name: "dre.csv", Data: []byte(csv)})
	job := &jobs.ImportJob{JobID: "j1", Owner: "acme", SourceURI: uri}
	_ = js.SaveJob(ctx, job)

	if err := svc.Import(ctx, job); err != nil {
		t.Fatalf("Import() unexpected error: %v", err)
	}

	if job.RecordsParsed != 3 {
		t.Errorf("RecordsParsed = %d, want 3", job.RecordsParsed)
	}
	want := store.Progress{Batch: 2, Batches: 2, Saved: 3, Total: 3}
	if job.Progress != want {
		t.Errorf("job.Progress = %+v, want %+v", job.Progress, want)
	}
	stored, _ := js.GetJob(ctx, "j1")
	if stored.Progress != want {
		t.Errorf("stored progress = %+v, want %+v", stored.Progress, want)
	}

	got, err := svc.Records(ctx, "acme")
	if err != nil {
		t.Fatalf("Records() unexpected error: %v", err)
	}
	if len(got) != 3 || got[0].EffectiveAmount != 1000 || got[1].Category != "2.1.1 Combustível" {
		t.Errorf("Records() = %+v", got)
	}
}

func TestImport_FileNameOverride(t *testing.T) {
	svc, mem, _ := newService(t, &mockRecordStore{})
	uri := mem.Put(filestore.File{Name: "upload", Data: []byte(csv)})

	job := &jobs.ImportJob{SourceURI: uri}
	if err := svc.Import(context.Background(), job); !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("Import() without extension error = %v, want ErrUnsupportedFormat", err)
	}

	job = &jobs.ImportJob{SourceURI: uri, FileName: "dre.csv"}
	if err := svc.Import(context.Background(), job); err != nil {
		t.Fatalf("Import() with FileName unexpected error: %v", err)
	}
}

func TestImport_ErrorClassification(t *testing.T) {
	storeErr := errors.New("connection reset")
	tests := []struct {
		name      string
		data      string
		uri       string
		saveErr   error
		permanent bool
		wantErr   error
	}{
		{name: "invalid type", data: "Tipo;Valor\nReceita;10\nxyz;5\n", permanent: true, wantErr: domain.ErrInvalidType},
		{name: "header only", data: "Tipo;Valor\n", permanent: true, wantErr: domain.ErrEmptySheet},
		{name: "missing upload", uri: "mem://gone", permanent: true, wantErr: filestore.ErrNotFound},
		{name: "unknown scheme", uri: "ftp://host/file.csv", permanent: true, wantErr: filestore.ErrUnsupportedScheme},
		{name: "store failure", data: csv, saveErr: storeErr, permanent: false, wantErr: storeErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := &mockRecordStore{}
			if tt.saveErr != nil {
				rs.SaveAllFunc = func(context.Context, string, []domain.FinancialRecord, store.ProgressFunc) error {
					return tt.saveErr
				}
			}
			svc, mem, _ := newService(t, rs)
			uri := tt.uri
			if uri == "" {
				uri = mem.Put(filestore.File{Name: "f.csv", Data: []byte(tt.data)})
			}

			err := svc.Import(context.Background(), &jobs.ImportJob{SourceURI: uri})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Import() error = %v, want %v", err, tt.wantErr)
			}
			if got := errors.Is(err, jobs.ErrPermanent); got != tt.permanent {
				t.Errorf("permanent = %v, want %v (%v)", got, tt.permanent, err)
			}
			if len(rs.saved) != 0 {
				t.Errorf("records saved despite failure: %v", rs.saved)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	rs := &mockRecordStore{}
	svc, _, _ := newService(t, rs)

	got, err := svc.Preview(context.Background(), []byte(csv), "dre.csv", "")
	if err != nil {
		t.Fatalf("Preview() unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Preview() returned %d records, want 3", len(got))
	}
	if len(rs.saved) != 0 {
		t.Error("Preview() must not store records")
	}

	_, err = svc.Preview(context.Background(), []byte("%PDF"), "x.pdf", "application/pdf")
	if err == nil || !strings.Contains(err.Error(), "Preview") {
		t.Errorf("Preview(pdf) error = %v", err)
	}
}
