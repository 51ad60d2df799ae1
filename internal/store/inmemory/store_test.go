package inmemory

import (
	"context"
	"testing"

	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/store"
	"github.com/google/go-cmp/cmp"
)

func TestStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := NewStore(store.BatchOptions{Size: 2})

	first := []domain.FinancialRecord{
		{Description: "a", EffectiveAmount: 1},
		{Description: "b", EffectiveAmount: 2},
		{Description: "c", EffectiveAmount: 3},
	}
	var progress []store.Progress
	if err := s.SaveAll(ctx, "", first, func(p store.Progress) { progress = append(progress, p) }); err != nil {
		t.Fatalf("SaveAll() unexpected error: %v", err)
	}
	if len(progress) != 2 || progress[1].Saved != 3 {
		t.Errorf("progress = %+v, want two batches ending at 3", progress)
	}

	got, err := s.LoadAll(ctx, domain.DefaultOwner)
	if err != nil {
		t.Fatalf("LoadAll() unexpected error: %v", err)
	}
	if diff := cmp.Diff(first, got); diff != "" {
		t.Errorf("LoadAll() mismatch (-want +got):\n%s", diff)
	}

	// A second save replaces, never appends.
	second := []domain.FinancialRecord{{Description: "z"}}
	if err := s.SaveAll(ctx, "anonymous", second, nil); err != nil {
		t.Fatalf("SaveAll() unexpected error: %v", err)
	}
	got, _ = s.LoadAll(ctx, "")
	if diff := cmp.Diff(second, got); diff != "" {
		t.Errorf("LoadAll() after replace mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_UnknownOwner(t *testing.T) {
	s := NewStore(store.DefaultBatchOptions())
	got, err := s.LoadAll(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("LoadAll() unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("LoadAll() = %#v, want empty non-nil slice", got)
	}
}

func TestStore_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewStore(store.BatchOptions{Size: 10})
	_ = s.SaveAll(ctx, "u", []domain.FinancialRecord{{Description: "orig"}}, nil)

	got, _ := s.LoadAll(ctx, "u")
	got[0].Description = "changed"

	again, _ := s.LoadAll(ctx, "u")
	if again[0].Description != "orig" {
		t.Errorf("stored record mutated through LoadAll result: %q", again[0].Description)
	}
}
