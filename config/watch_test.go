package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// replaceFile writes content next to path and renames it over path, the way
// editors save atomically.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := filepath.Join(filepath.Dir(path), ".healthagg.yaml.tmp")
	if err := os.WriteFile(tmp, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}
}

func startWatch(t *testing.T, path string) (<-chan *Config, <-chan error, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	changes := make(chan *Config, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func(cfg *Config) { changes <- cfg })
	}()

	// Give the watcher time to register before changing the file.
	time.Sleep(100 * time.Millisecond)
	return changes, done, cancel
}

func TestWatch_ReloadsOnReplace(t *testing.T) {
	path := writeConfig(t, "services:\n  a: http://a\n")
	changes, done, cancel := startWatch(t, path)

	replaceFile(t, path, "services:\n  a: http://a\n  b: http://b\n")

	select {
	case cfg := <-changes:
		if len(cfg.Services) != 2 || cfg.Services[1].Name != "b" {
			t.Errorf("reloaded services = %+v", cfg.Services)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}

func TestWatch_InvalidReloadKeepsPrevious(t *testing.T) {
	path := writeConfig(t, "services:\n  a: http://a\n")
	changes, _, _ := startWatch(t, path)

	replaceFile(t, path, "policy: majority\n")

	select {
	case cfg := <-changes:
		t.Errorf("onChange called with %+v for an invalid file", cfg)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatch_IgnoresSiblingFiles(t *testing.T) {
	path := writeConfig(t, "services:\n  a: http://a\n")
	changes, _, _ := startWatch(t, path)

	sibling := filepath.Join(filepath.Dir(path), "other.yaml")
	if err := os.WriteFile(sibling, []byte("services:\n  x: http://x\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case cfg := <-changes:
		t.Errorf("onChange called for a sibling file: %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), nil, func(*Config) {})
	if err == nil {
		t.Fatal("expected error watching a missing file")
	}
}
