package client

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSession_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s := &Session{BaseURL: "http://localhost:8080", Phone: "9876543210", Token: "tok"}
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions = %o; want 600", perm)
	}

	got, err := LoadSession(path)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if *got != *s {
		t.Errorf("loaded %+v; want %+v", got, s)
	}
}

func TestLoadSession_Missing(t *testing.T) {
	got, err := LoadSession(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Token != "" {
		t.Errorf("expected empty session, got %+v", got)
	}
}

func TestLoadSession_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSession(path); err == nil {
		t.Error("expected decode error")
	}
}
