package reload

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// startWatcher writes an initial build file and runs a watcher on it until
// the test ends. It returns the file path and the onChange call counter.
func startWatcher(t *testing.T, debounce time.Duration) (string, *atomic.Int32) {
	path, calls, _ := startRecordingWatcher(t, debounce)
	return path, calls
}

// startRecordingWatcher is startWatcher that also returns the reported paths.
func startRecordingWatcher(t *testing.T, debounce time.Duration) (string, *atomic.Int32, func() []string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ccbuild.yaml")
	if err := os.WriteFile(path, []byte("targets:\n  - name: example\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	var mu sync.Mutex
	var reported []string
	w := NewWatcher(path, func(changed string) error {
		mu.Lock()
		reported = append(reported, changed)
		mu.Unlock()
		calls.Add(1)
		return nil
	})
	w.SetDebounce(debounce)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Watch(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})

	// Let the watcher register the directory.
	time.Sleep(100 * time.Millisecond)
	return path, &calls, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), reported...)
	}
}

func TestWatcher_DirectWrite(t *testing.T) {
	path, calls, reported := startRecordingWatcher(t, 50*time.Millisecond)

	if err := os.WriteFile(path, []byte("targets:\n  - name: example\n    preset: example\n"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if calls.Load() != 1 {
		t.Errorf("expected onChange to be called once, got %d", calls.Load())
	}
	if got := reported(); len(got) != 1 || got[0] != path {
		t.Errorf("expected the build file path to be reported, got %v", got)
	}
}

func TestWatcher_UnchangedSaveIgnored(t *testing.T) {
	path, calls := startWatcher(t, 50*time.Millisecond)

	// Same contents as startWatcher wrote
	if err := os.WriteFile(path, []byte("targets:\n  - name: example\n"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if calls.Load() != 0 {
		t.Errorf("expected a save without changes to be ignored, got %d calls", calls.Load())
	}
}

func TestWatcher_RemovedThenRecreated(t *testing.T) {
	path, calls := startWatcher(t, 50*time.Millisecond)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatalf("expected removal not to trigger a reload, got %d calls", calls.Load())
	}

	if err := os.WriteFile(path, []byte("targets:\n  - name: example\n"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("expected the recreated file to trigger one reload, got %d calls", calls.Load())
	}
}

func TestWatcher_AtomicSave(t *testing.T) {
	path, calls := startWatcher(t, 50*time.Millisecond)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte("targets:\n  - name: renamed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	time.Sleep(500 * time.Millisecond)

	if calls.Load() < 1 {
		t.Errorf("expected onChange for an atomic save, got %d calls", calls.Load())
	}
}

func TestWatcher_MultipleWritesDebounced(t *testing.T) {
	path, calls := startWatcher(t, 100*time.Millisecond)

	for i := 0; i < 5; i++ {
		content := "targets:\n  - name: example-" + string(rune('a'+i)) + "\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(300 * time.Millisecond)

	if calls.Load() != 1 {
		t.Errorf("expected rapid writes to be debounced to 1 call, got %d", calls.Load())
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	path, calls := startWatcher(t, 50*time.Millisecond)

	other := filepath.Join(filepath.Dir(path), "index.html")
	if err := os.WriteFile(other, []byte("<html></html>"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if calls.Load() != 0 {
		t.Errorf("expected unrelated files to be ignored, got %d calls", calls.Load())
	}
}
