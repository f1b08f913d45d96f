package main

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSplitHosts(t *testing.T) {
	got := splitHosts(" localhost, ,127.0.0.1,")
	want := []string{"localhost", "127.0.0.1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitHosts = %v; want %v", got, want)
	}
}

func TestRun_NewCA(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	if err := run(dir, []string{"localhost"}, "", ""); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, name := range []string{"ca.crt", "ca.key", "server.crt", "server.key"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	if _, err := tls.LoadX509KeyPair(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key")); err != nil {
		t.Errorf("server pair unusable: %v", err)
	}
}

func TestRun_ReuseCA(t *testing.T) {
	first := t.TempDir()
	if err := run(first, []string{"localhost"}, "", ""); err != nil {
		t.Fatal(err)
	}

	second := t.TempDir()
	err := run(second, []string{"shop.local"}, filepath.Join(first, "ca.crt"), filepath.Join(first, "ca.key"))
	if err != nil {
		t.Fatalf("run with existing CA: %v", err)
	}
	if _, err := os.Stat(filepath.Join(second, "ca.crt")); !os.IsNotExist(err) {
		t.Error("existing CA must not be rewritten")
	}
	if _, err := os.Stat(filepath.Join(second, "server.crt")); err != nil {
		t.Errorf("server.crt not written: %v", err)
	}
}

func TestRun_NoHosts(t *testing.T) {
	if err := run(t.TempDir(), nil, "", ""); err == nil {
		t.Error("expected error without hosts")
	}
}
