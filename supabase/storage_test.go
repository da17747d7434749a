package supabase

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	if v, err := s.Get(ctx, StorageKey); err != nil || v != "" {
		t.Fatalf("expected empty value, got %q %v", v, err)
	}
	if err := s.Set(ctx, StorageKey, `{"access_token":"a"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "other", "x"); err != nil {
		t.Fatalf("Set other: %v", err)
	}
	if v, _ := s.Get(ctx, StorageKey); v != `{"access_token":"a"}` {
		t.Fatalf("unexpected value %q", v)
	}
	if err := s.Remove(ctx, StorageKey); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(ctx, StorageKey); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
	if v, _ := s.Get(ctx, StorageKey); v != "" {
		t.Fatalf("expected removed value, got %q", v)
	}
	if v, _ := s.Get(ctx, "other"); v != "x" {
		t.Fatalf("expected unrelated key kept, got %q", v)
	}
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage())
}

func TestFileStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "auth.json")
	fs := NewFileStorage(path)
	exerciseStorage(t, fs)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode 0600, got %v", info.Mode().Perm())
	}

	if v, _ := NewFileStorage(path).Get(context.Background(), "other"); v != "x" {
		t.Fatalf("expected value to survive reopen, got %q", v)
	}
}

func TestFileStorageCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStorage(path).Get(context.Background(), StorageKey); err == nil {
		t.Fatal("expected decode error")
	}
}
