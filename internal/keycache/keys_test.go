package keycache

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entries := map[string]uint64{
		"fp-a": 5,
		"fp-b": 1,
		"fp-c": 3,
	}
	if err := s.Save(ctx, 28, entries); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	cache, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	sub := cache[28]
	if len(sub) != 3 {
		t.Fatalf("expected 3 entries at width 28, got %d", len(sub))
	}
	for fp, want := range entries {
		if got := sub[fp]; got != want {
			t.Errorf("key for %s = %d, want %d", fp, got, want)
		}
	}
}

func TestSave_NeverOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, 28, map[string]uint64{"fp-a": 5}); err != nil {
		t.Fatalf("first Save() failed: %v", err)
	}
	// A second write for the same (width, fingerprint) must be a no-op.
	if err := s.Save(ctx, 28, map[string]uint64{"fp-a": 99}); err != nil {
		t.Fatalf("second Save() failed: %v", err)
	}

	cache, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got := cache[28]["fp-a"]; got != 5 {
		t.Errorf("key for fp-a = %d, want original 5", got)
	}
}

func TestSaveLoad_WidthsAreIndependent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, 16, map[string]uint64{"fp-a": 7}); err != nil {
		t.Fatalf("Save(16) failed: %v", err)
	}
	if err := s.Save(ctx, 28, map[string]uint64{"fp-a": 12345}); err != nil {
		t.Fatalf("Save(28) failed: %v", err)
	}

	cache, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got := cache[16]["fp-a"]; got != 7 {
		t.Errorf("width 16 key = %d, want 7", got)
	}
	if got := cache[28]["fp-a"]; got != 12345 {
		t.Errorf("width 28 key = %d, want 12345", got)
	}
}

func TestSave_EmptyIsNoOp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, 28, nil); err != nil {
		t.Fatalf("Save(nil) failed: %v", err)
	}

	cache, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(cache) != 0 {
		t.Errorf("expected empty cache, got %d widths", len(cache))
	}
}

func TestLoad_EmptyDatabase(t *testing.T) {
	s := openTestStore(t)

	cache, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(cache) != 0 {
		t.Errorf("expected empty cache, got %d widths", len(cache))
	}
}

func TestCountByWidth(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, 16, map[string]uint64{"a": 1, "b": 2}); err != nil {
		t.Fatalf("Save(16) failed: %v", err)
	}
	if err := s.Save(ctx, 28, map[string]uint64{"c": 3}); err != nil {
		t.Fatalf("Save(28) failed: %v", err)
	}

	counts, err := s.CountByWidth(ctx)
	if err != nil {
		t.Fatalf("CountByWidth() failed: %v", err)
	}
	if counts[16] != 2 || counts[28] != 1 {
		t.Errorf("counts = %v, want map[16:2 28:1]", counts)
	}
}

func TestSaveLoad_FullWidthKeySurvives(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Extreme values must round-trip through the INTEGER column.
	entries := map[string]uint64{
		"zero": 0,
		"max":  (1 << 28) - 1,
	}
	if err := s.Save(ctx, 28, entries); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	cache, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got := cache[28]["zero"]; got != 0 {
		t.Errorf("zero key = %d", got)
	}
	if got := cache[28]["max"]; got != (1<<28)-1 {
		t.Errorf("max key = %d, want %d", got, (1<<28)-1)
	}
}
