package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileKV(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(filepath.Join(dir, "data"))
	if err != nil {
		t.Fatalf("NewFileKV failed: %v", err)
	}

	t.Run("missing key", func(t *testing.T) {
		if _, err := kv.Get("bt_recent_stops"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("set then get", func(t *testing.T) {
		if err := kv.Set("bt_recent_stops", []byte(`[{"stopId":"0626"}]`)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, err := kv.Get("bt_recent_stops")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != `[{"stopId":"0626"}]` {
			t.Errorf("unexpected value %s", got)
		}
	})

	t.Run("overwrite leaves no temp files", func(t *testing.T) {
		if err := kv.Set("bt_recent_stops", []byte(`[]`)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		entries, err := os.ReadDir(filepath.Join(dir, "data"))
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Errorf("expected exactly one file, got %d", len(entries))
		}
	})

	t.Run("rejects path traversal", func(t *testing.T) {
		if err := kv.Set("../escape", []byte("x")); err == nil {
			t.Error("expected an error for an invalid key")
		}
	})
}

func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	if _, err := kv.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	buf := []byte("v1")
	if err := kv.Set("k", buf); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'x'
	got, _ := kv.Get("k")
	if string(got) != "v1" {
		t.Errorf("stored value must not alias caller buffer, got %s", got)
	}

	kv.SetErr = errors.New("quota exceeded")
	if err := kv.Set("k", []byte("v2")); err == nil {
		t.Error("expected SetErr to be returned")
	}
}
