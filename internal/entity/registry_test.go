package entity

import (
	"context"
	"testing"

	"github.com/nerrad567/gray-logic-alarmdotcom/internal/alarmdotcom"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/number"
)

// cachedRecord returns the registry's cached copy of uniqueID.
func cachedRecord(reg *Registry, uniqueID string) (Record, bool) {
	for _, rec := range reg.List() {
		if rec.UniqueID == uniqueID {
			return rec, true
		}
	}
	return Record{}, false
}

func TestRegistry_UpsertAndList(t *testing.T) {
	reg := NewRegistry(setupTestRepo(t))
	ctx := context.Background()

	if err := reg.Upsert(ctx, *testRecord("cam-1")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, ok := cachedRecord(reg, "cam-1_indicator-led")
	if !ok {
		t.Fatal("upserted record missing from List()")
	}
	if got.DeviceID != "cam-1" {
		t.Errorf("DeviceID = %q", got.DeviceID)
	}
	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1", reg.Count())
	}
	if _, ok := cachedRecord(reg, "nope"); ok {
		t.Error("List() returned a record that was never upserted")
	}
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	reg := NewRegistry(setupTestRepo(t))
	ctx := context.Background()

	if err := reg.Upsert(ctx, *testRecord("cam-1")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, _ := cachedRecord(reg, "cam-1_indicator-led")
	*got.Max = 1
	got.Name = "mutated"

	again, ok := cachedRecord(reg, "cam-1_indicator-led")
	if !ok {
		t.Fatal("record missing from List()")
	}
	if *again.Max != 100 || again.Name == "mutated" {
		t.Error("List() returned a record sharing memory with the cache")
	}
}

func TestRegistry_UpsertPreservesFirstSeenAndValue(t *testing.T) {
	reg := NewRegistry(setupTestRepo(t))
	ctx := context.Background()

	rec := *testRecord("cam-1")
	if err := reg.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := reg.RecordValue(ctx, rec.UniqueID, 42, SourcePoll); err != nil {
		t.Fatalf("RecordValue() error = %v", err)
	}
	first, _ := cachedRecord(reg, rec.UniqueID)

	if err := reg.Upsert(ctx, *testRecord("cam-1")); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	got, ok := cachedRecord(reg, rec.UniqueID)
	if !ok {
		t.Fatal("record missing after second Upsert()")
	}
	if !got.FirstSeen.Equal(first.FirstSeen) {
		t.Errorf("FirstSeen changed from %v to %v", first.FirstSeen, got.FirstSeen)
	}
	if got.LastValue == nil || *got.LastValue != 42 {
		t.Errorf("LastValue = %v, want 42", got.LastValue)
	}
}

func TestRegistry_RefreshCache(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	for _, id := range []string{"cam-1", "cam-2"} {
		if err := repo.Upsert(ctx, testRecord(id)); err != nil {
			t.Fatalf("Upsert(%s) error = %v", id, err)
		}
	}

	reg := NewRegistry(repo)
	if reg.Count() != 0 {
		t.Fatalf("Count() before refresh = %d", reg.Count())
	}
	if err := reg.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	list := reg.List()
	if len(list) != 2 || list[0].DeviceID != "cam-1" || list[1].DeviceID != "cam-2" {
		t.Errorf("List() = %+v", list)
	}
}

func TestRegistry_RecordValueAndHistory(t *testing.T) {
	reg := NewRegistry(setupTestRepo(t))
	ctx := context.Background()

	rec := *testRecord("cam-1")
	if err := reg.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := reg.RecordValue(ctx, rec.UniqueID, 7, SourceCommand); err != nil {
		t.Fatalf("RecordValue() error = %v", err)
	}

	cached := reg.List()[0]
	if cached.LastValue == nil || *cached.LastValue != 7 {
		t.Errorf("cached LastValue = %v, want 7", cached.LastValue)
	}

	history, err := reg.History(ctx, rec.UniqueID, 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 || history[0].Value != 7 || history[0].Source != SourceCommand {
		t.Errorf("History() = %+v", history)
	}
}

func TestRegistry_Delete(t *testing.T) {
	reg := NewRegistry(setupTestRepo(t))
	ctx := context.Background()

	rec := *testRecord("cam-1")
	if err := reg.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := reg.Delete(ctx, rec.UniqueID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if reg.Count() != 0 {
		t.Errorf("Count() after delete = %d", reg.Count())
	}
}

func TestRecordFromState(t *testing.T) {
	opt := alarmdotcom.NewConfigurationOption("indicator-led", "LED Brightness", alarmdotcom.OptionBrightness, f64(0), f64(100), "42")
	dev := alarmdotcom.NewDevice("cam-1", "Front Door", "Skybell HD", []alarmdotcom.Setting{opt}, nil, nil)
	e := number.NewEntity(nil, dev, opt)
	if err := e.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	rec := RecordFromState(e.State())
	if rec.UniqueID != "cam-1_indicator-led" || rec.OptionType != "brightness" || rec.Mode != "slider" {
		t.Errorf("RecordFromState() = %+v", rec)
	}
	if rec.LastValue == nil || *rec.LastValue != 42 {
		t.Errorf("LastValue = %v, want 42", rec.LastValue)
	}
	if err := rec.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
