package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/argusworks/argus/internal/config"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "argus.yaml")
	writeConfig(t, path, validYAML)

	w, err := config.NewWatcher(path, nil, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if got := w.Current().Server.ListenAddr; got != ":9090" {
		t.Errorf("listen_addr = %q", got)
	}
}

func TestWatcher_InitialLoadFailure(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "argus.yaml")
	writeConfig(t, path, "providers: {llm: {name: openai}}")

	if _, err := config.NewWatcher(path, nil); err == nil {
		t.Fatal("expected error for invalid initial config, got nil")
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "argus.yaml")
	writeConfig(t, path, validYAML)

	var mu sync.Mutex
	var gotNew *config.Config
	changed := make(chan struct{}, 1)

	w, err := config.NewWatcher(path, func(_, new *config.Config) {
		mu.Lock()
		gotNew = new
		mu.Unlock()
		select {
		case changed <- struct{}{}:
		default:
		}
	}, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	// Ensure the mtime moves even on coarse-grained filesystems.
	updated := strings.Replace(validYAML, "log_level: debug", "log_level: warn", 1)
	writeConfig(t, path, updated)
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the change")
	}

	mu.Lock()
	defer mu.Unlock()
	if gotNew.Server.LogLevel != config.LogWarn {
		t.Errorf("new log_level = %q, want warn", gotNew.Server.LogLevel)
	}
	if w.Current().Server.LogLevel != config.LogWarn {
		t.Error("Current() should return the reloaded config")
	}
}

func TestWatcher_KeepsOldConfigOnInvalidChange(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "argus.yaml")
	writeConfig(t, path, validYAML)

	w, err := config.NewWatcher(path, func(_, _ *config.Config) {
		t.Error("onChange must not fire for an invalid config")
	}, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	writeConfig(t, path, "server: {log_level: chatty}")
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	// Give the poller a few cycles to notice and reject the bad file.
	time.Sleep(100 * time.Millisecond)

	if got := w.Current().Server.LogLevel; got != config.LogDebug {
		t.Errorf("Current() log_level = %q, want the original debug", got)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "argus.yaml")
	writeConfig(t, path, validYAML)

	w, err := config.NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Stop()
	w.Stop()
}
