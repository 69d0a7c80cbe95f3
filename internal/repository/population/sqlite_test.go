package population

import (
	"context"
	"errors"
	"testing"

	"github.com/atalaykaya/demographics-api/internal/apperror"
	"github.com/atalaykaya/demographics-api/internal/platform/sqlite"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestReplaceAll_And_Get(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	totals := map[string]int64{
		"California": 3_000_000,
		"Texas":      500_000,
	}

	written, err := repo.ReplaceAll(ctx, totals, "demographic_data_20260124_153045.json")
	if err != nil {
		t.Fatalf("replace all: %v", err)
	}
	if written != 2 {
		t.Errorf("expected 2 rows written, got %d", written)
	}

	got, err := repo.Get(ctx, "California")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalPopulation != 3_000_000 {
		t.Errorf("expected 3000000, got %d", got.TotalPopulation)
	}
	if got.SourceFile != "demographic_data_20260124_153045.json" {
		t.Errorf("unexpected source file %s", got.SourceFile)
	}
	if got.LastUpdated.IsZero() {
		t.Error("expected last updated to be set")
	}
}

func TestReplaceAll_OverwritesExistingRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	if _, err := repo.ReplaceAll(ctx, map[string]int64{"Texas": 100}, "a.json"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.ReplaceAll(ctx, map[string]int64{"Texas": 200}, "b.json"); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Get(ctx, "Texas")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalPopulation != 200 {
		t.Errorf("expected full replace to 200, got %d", got.TotalPopulation)
	}
	if got.SourceFile != "b.json" {
		t.Errorf("expected provenance b.json, got %s", got.SourceFile)
	}

	all, err := repo.List(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected one row per state, got %d", len(all))
	}
}

func TestReplaceAll_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	totals := map[string]int64{"Nevada": 42}
	for range 2 {
		if _, err := repo.ReplaceAll(ctx, totals, "same.json"); err != nil {
			t.Fatal(err)
		}
	}

	all, err := repo.List(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 row, got %d", len(all))
	}
	if all[0].TotalPopulation != 42 || all[0].SourceFile != "same.json" {
		t.Errorf("unexpected row after repeat: %+v", all[0])
	}
}

func TestReplaceAll_Empty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)

	written, err := repo.ReplaceAll(context.Background(), nil, "x.json")
	if err != nil {
		t.Fatalf("replace all: %v", err)
	}
	if written != 0 {
		t.Errorf("expected 0 rows, got %d", written)
	}
}

func TestGet_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)

	_, err := repo.Get(context.Background(), "Atlantis")
	if err == nil {
		t.Fatal("expected error for unknown state")
	}
	var ae *apperror.AppError
	if !errors.As(err, &ae) || ae.Code() != apperror.NotFound {
		t.Errorf("expected NotFound app error, got %v", err)
	}
}

func TestList_FilterAndOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	totals := map[string]int64{"Texas": 1, "Alabama": 2, "Nevada": 3}
	if _, err := repo.ReplaceAll(ctx, totals, "x.json"); err != nil {
		t.Fatal(err)
	}

	all, err := repo.List(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(all))
	}
	if all[0].StateName != "Alabama" || all[2].StateName != "Texas" {
		t.Errorf("expected alphabetical order, got %s..%s", all[0].StateName, all[2].StateName)
	}

	filtered, err := repo.List(ctx, []string{"Texas", "Nevada"})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("expected 2 filtered rows, got %d", len(filtered))
	}

	none, err := repo.List(ctx, []string{"Atlantis"})
	if err != nil {
		t.Fatalf("list unknown: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no rows, got %d", len(none))
	}
}
