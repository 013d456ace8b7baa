package localstate

import (
	"context"
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = _, %v, %v, want false, nil", ok, err)
	}
	if err := s.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "k", "v2"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || v != "v2" {
		t.Errorf("Get(k) = %q, %v, %v, want v2, true, nil", v, ok, err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("key still present after Delete")
	}
}

func TestPrefsDefaults(t *testing.T) {
	s, _ := openTemp(t)
	p, err := s.LoadPrefs(context.Background())
	if err != nil {
		t.Fatalf("LoadPrefs: %v", err)
	}
	if p != DefaultPrefs() {
		t.Errorf("LoadPrefs() = %+v, want %+v", p, DefaultPrefs())
	}
}

func TestPrefsPersistAcrossOpen(t *testing.T) {
	ctx := context.Background()
	s, path := openTemp(t)

	want := Prefs{SidebarCollapsed: true, Category: "humor", LastView: "notifications", UnreadOnly: true}
	if err := s.SavePrefs(ctx, want); err != nil {
		t.Fatalf("SavePrefs: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.LoadPrefs(ctx)
	if err != nil {
		t.Fatalf("LoadPrefs: %v", err)
	}
	if got != want {
		t.Errorf("LoadPrefs() = %+v, want %+v", got, want)
	}
}

func TestPrefsIgnoreGarbage(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)
	if err := s.Set(ctx, KeyUnreadOnly, "maybe"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, KeyCategory, ""); err != nil {
		t.Fatal(err)
	}
	p, err := s.LoadPrefs(ctx)
	if err != nil {
		t.Fatalf("LoadPrefs: %v", err)
	}
	if p.UnreadOnly || p.Category != "all" {
		t.Errorf("LoadPrefs() = %+v", p)
	}
}
