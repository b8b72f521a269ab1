package entity

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nerrad567/gray-logic-alarmdotcom/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-alarmdotcom/migrations"
)

// setupTestRepo opens a temporary database with the real migrations applied.
func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close() //nolint:errcheck // Test cleanup
	})

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func f64(v float64) *float64 { return &v }

// testRecord creates a brightness record for testing.
func testRecord(deviceID string) *Record {
	return &Record{
		UniqueID:       deviceID + "_indicator-led",
		Name:           "Front Door LED Brightness",
		DeviceID:       deviceID,
		DeviceName:     "Front Door",
		Slug:           "indicator-led",
		OptionType:     "brightness",
		Min:            f64(0),
		Max:            f64(100),
		Mode:           "slider",
		Icon:           "mdi:brightness-5",
		EntityCategory: "config",
	}
}

// storedRecord reads a single record back through List.
func storedRecord(t *testing.T, repo *SQLiteRepository, uniqueID string) *Record {
	t.Helper()
	records, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	for i := range records {
		if records[i].UniqueID == uniqueID {
			return &records[i]
		}
	}
	t.Fatalf("record %q not stored", uniqueID)
	return nil
}

func TestSQLiteRepository_UpsertAndList(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec := testRecord("cam-1")
	rec.LastValue = f64(42)
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got := storedRecord(t, repo, rec.UniqueID)
	if got.Name != rec.Name || got.Slug != rec.Slug || got.Mode != "slider" {
		t.Errorf("stored record = %+v", got)
	}
	if got.Min == nil || *got.Min != 0 || got.Max == nil || *got.Max != 100 {
		t.Errorf("bounds = %v/%v, want 0/100", got.Min, got.Max)
	}
	if got.LastValue == nil || *got.LastValue != 42 {
		t.Errorf("LastValue = %v, want 42", got.LastValue)
	}
	if got.FirstSeen.IsZero() || got.LastSeen.IsZero() {
		t.Error("timestamps should be set")
	}
}

func TestSQLiteRepository_UpsertUpdates(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec := testRecord("cam-1")
	rec.LastValue = f64(42)
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	changed := testRecord("cam-1")
	changed.Name = "Porch LED Brightness"
	changed.Min = nil
	changed.Mode = "auto"
	if err := repo.Upsert(ctx, changed); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	got := storedRecord(t, repo, rec.UniqueID)
	if got.Name != "Porch LED Brightness" || got.Mode != "auto" {
		t.Errorf("descriptive fields not updated: %+v", got)
	}
	if got.Min != nil {
		t.Errorf("Min = %v, want nil", *got.Min)
	}
	if got.LastValue == nil || *got.LastValue != 42 {
		t.Errorf("LastValue = %v, want 42 kept", got.LastValue)
	}
}

func TestSQLiteRepository_UpsertInvalid(t *testing.T) {
	repo := setupTestRepo(t)

	rec := testRecord("cam-1")
	rec.UniqueID = ""
	if err := repo.Upsert(context.Background(), rec); !errors.Is(err, ErrInvalidEntity) {
		t.Errorf("Upsert() error = %v, want ErrInvalidEntity", err)
	}
}

func TestSQLiteRepository_List(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"cam-b", "cam-a"} {
		if err := repo.Upsert(ctx, testRecord(id)); err != nil {
			t.Fatalf("Upsert(%s) error = %v", id, err)
		}
	}

	records, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("List() = %d records, want 2", len(records))
	}
	if records[0].DeviceID != "cam-a" {
		t.Errorf("List() not ordered by unique_id: first = %s", records[0].UniqueID)
	}
}

func TestSQLiteRepository_RecordValueAndHistory(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec := testRecord("cam-1")
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	for i, v := range []float64{10, 20, 30} {
		source := SourcePoll
		if i == 1 {
			source = SourceCommand
		}
		if err := repo.RecordValue(ctx, rec.UniqueID, v, source); err != nil {
			t.Fatalf("RecordValue(%v) error = %v", v, err)
		}
	}

	history, err := repo.History(ctx, rec.UniqueID, 2)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("History() = %d entries, want 2", len(history))
	}
	if history[0].Value != 30 || history[1].Value != 20 {
		t.Errorf("History() values = %v, %v; want newest first 30, 20", history[0].Value, history[1].Value)
	}
	if history[1].Source != SourceCommand {
		t.Errorf("Source = %q, want %q", history[1].Source, SourceCommand)
	}

	got := storedRecord(t, repo, rec.UniqueID)
	if got.LastValue == nil || *got.LastValue != 30 {
		t.Errorf("LastValue = %v, want 30", got.LastValue)
	}
}

func TestSQLiteRepository_RecordValueUnknown(t *testing.T) {
	repo := setupTestRepo(t)
	err := repo.RecordValue(context.Background(), "nope", 1, "")
	if !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("RecordValue() error = %v, want ErrEntityNotFound", err)
	}
}

func TestSQLiteRepository_DeleteCascades(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec := testRecord("cam-1")
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.RecordValue(ctx, rec.UniqueID, 5, SourcePoll); err != nil {
		t.Fatalf("RecordValue() error = %v", err)
	}

	if err := repo.Delete(ctx, rec.UniqueID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	history, err := repo.History(ctx, rec.UniqueID, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Errorf("History() after delete = %d entries, want 0", len(history))
	}

	if err := repo.Delete(ctx, rec.UniqueID); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("second Delete() error = %v, want ErrEntityNotFound", err)
	}
}
