package bigquery

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/store"
	"github.com/google/go-cmp/cmp"
)

type saveMarker struct {
	owner, saveID string
	saved         time.Time
}

// fakeOps keeps rows and save markers in memory and answers
// QueryLatestSave the way latestSaveSQL does.
type fakeOps struct {
	rows    []*RecordRow
	markers []saveMarker

	inserts    int
	failInsert int // 1-based insert call that fails, 0 for never
}

func (f *fakeOps) InsertRecords(_ context.Context, rows []*RecordRow) error {
	f.inserts++
	if f.inserts == f.failInsert {
		return errors.New("insert rejected")
	}
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeOps) MarkSaveComplete(_ context.Context, owner, saveID string, _ int, saved time.Time) error {
	f.markers = append(f.markers, saveMarker{owner: owner, saveID: saveID, saved: saved})
	return nil
}

func (f *fakeOps) DeleteOtherSaves(context.Context, string, string) error {
	// Streaming buffer rows cannot be deleted yet.
	return errors.New("streaming buffer")
}

func (f *fakeOps) QueryLatestSave(_ context.Context, owner string) ([]*RecordRow, error) {
	var latest *saveMarker
	for i, m := range f.markers {
		if m.owner == owner && (latest == nil || m.saved.After(latest.saved)) {
			latest = &f.markers[i]
		}
	}
	if latest == nil {
		return nil, nil
	}
	var out []*RecordRow
	for _, r := range f.rows {
		if r.OwnerKey == owner && r.SaveID == latest.saveID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func newTestRepository(ops recordOps) *RecordRepository {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &RecordRepository{
		ops:  ops,
		opts: store.BatchOptions{Size: 2},
		now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
	}
}

func sampleRecords(descriptions ...string) []domain.FinancialRecord {
	out := make([]domain.FinancialRecord, len(descriptions))
	for i, d := range descriptions {
		out[i] = domain.FinancialRecord{
			Type:            domain.TypeExpense,
			Status:          domain.StatusPaid,
			EffectiveAmount: -10,
			Description:     d,
		}
	}
	return out
}

func TestRecordRepository_FailedSaveNotServed(t *testing.T) {
	ctx := context.Background()
	ops := &fakeOps{}
	repo := newTestRepository(ops)

	first := sampleRecords("Aluguel", "Luz", "Internet")
	if err := repo.SaveAll(ctx, "acme", first, nil); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	// The second batch of the next save fails after the first was written.
	ops.failInsert = ops.inserts + 2
	if err := repo.SaveAll(ctx, "acme", sampleRecords("Água", "Gás", "Folha"), nil); err == nil {
		t.Fatal("SaveAll() error = nil, want batch failure")
	}
	if len(ops.markers) != 1 {
		t.Errorf("markers = %d, want 1", len(ops.markers))
	}

	got, err := repo.LoadAll(ctx, "acme")
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if diff := cmp.Diff(first, got); diff != "" {
		t.Errorf("LoadAll() mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordRepository_LatestCompletedSave(t *testing.T) {
	ctx := context.Background()
	ops := &fakeOps{}
	repo := newTestRepository(ops)

	if err := repo.SaveAll(ctx, "acme", sampleRecords("Aluguel", "Luz", "Internet"), nil); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}
	if err := repo.SaveAll(ctx, "other", sampleRecords("Frete"), nil); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}
	if err := repo.SaveAll(ctx, "acme", nil, nil); err != nil {
		t.Fatalf("SaveAll() empty error = %v", err)
	}

	got, err := repo.LoadAll(ctx, "acme")
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("LoadAll() after empty save = %d records, want 0", len(got))
	}

	got, err = repo.LoadAll(ctx, "other")
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if diff := cmp.Diff(sampleRecords("Frete"), got); diff != "" {
		t.Errorf("LoadAll() mismatch (-want +got):\n%s", diff)
	}
}

func TestLatestSaveSQL_ReadsMarkers(t *testing.T) {
	sql := latestSaveSQL(Table{ProjectID: "p", DatasetID: "d", TableID: "records"})
	for _, want := range []string{"FROM `p.d.records` r", "FROM `p.d.records_saves`", "ORDER BY saved_ts DESC"} {
		if !strings.Contains(sql, want) {
			t.Errorf("latestSaveSQL() missing %q:\n%s", want, sql)
		}
	}
}
