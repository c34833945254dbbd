package state

import (
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

// setTempHome points HOME at a temp directory for isolated testing.
func setTempHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestPaths(t *testing.T) {
	home := setTempHome(t)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"BaseDir", BaseDir(), filepath.Join(home, ".ccbuild")},
		{"StateDir", StateDir(), filepath.Join(home, ".ccbuild", "state")},
		{"LogDir", LogDir(), filepath.Join(home, ".ccbuild", "logs")},
		{"StatePath", StatePath("example"), filepath.Join(home, ".ccbuild", "state", "example.json")},
		{"LogPath", LogPath("example"), filepath.Join(home, ".ccbuild", "logs", "example.log")},
		{"LockPath", LockPath("example"), filepath.Join(home, ".ccbuild", "state", "example.lock")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s() = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	setTempHome(t)

	st := &ServerState{Target: "example", PID: 12345}
	if err := Save(st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(StateDir())
	if err != nil {
		t.Fatalf("expected state directory to exist: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("expected %s to be a directory", StateDir())
	}
}

func TestLoad_Success(t *testing.T) {
	setTempHome(t)

	startTime := time.Now().Truncate(time.Second)
	original := &ServerState{
		Target:    "example",
		BuildFile: "/project/ccbuild.yaml",
		PID:       54321,
		Port:      9000,
		URL:       "http://localhost:9000/dist/",
		LogFile:   LogPath("example"),
		StartedAt: startTime,
	}
	if err := Save(original); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load("example")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Target != original.Target {
		t.Errorf("Target = %q, want %q", loaded.Target, original.Target)
	}
	if loaded.BuildFile != original.BuildFile {
		t.Errorf("BuildFile = %q, want %q", loaded.BuildFile, original.BuildFile)
	}
	if loaded.PID != original.PID {
		t.Errorf("PID = %d, want %d", loaded.PID, original.PID)
	}
	if loaded.Port != original.Port {
		t.Errorf("Port = %d, want %d", loaded.Port, original.Port)
	}
	if loaded.URL != original.URL {
		t.Errorf("URL = %q, want %q", loaded.URL, original.URL)
	}
	if loaded.LogFile != original.LogFile {
		t.Errorf("LogFile = %q, want %q", loaded.LogFile, original.LogFile)
	}
	if !loaded.StartedAt.Equal(original.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", loaded.StartedAt, original.StartedAt)
	}
}

func TestLoad_NotExists(t *testing.T) {
	setTempHome(t)

	if _, err := Load("missing"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	setTempHome(t)

	if err := os.MkdirAll(StateDir(), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(StatePath("bad"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load("bad"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestDelete(t *testing.T) {
	setTempHome(t)

	if err := Save(&ServerState{Target: "example"}); err != nil {
		t.Fatal(err)
	}
	if err := Delete("example"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(StatePath("example")); !os.IsNotExist(err) {
		t.Error("expected state file to be removed")
	}
	if err := Delete("example"); err != nil {
		t.Errorf("Delete() of missing file should not error, got %v", err)
	}
}

func TestList(t *testing.T) {
	setTempHome(t)

	states, err := List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(states) != 0 {
		t.Errorf("expected no states, got %d", len(states))
	}

	for _, name := range []string{"library", "example"} {
		if err := Save(&ServerState{Target: name, PID: 1}); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(StateDir(), "broken.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(StateDir(), "example.lock"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	states, err = List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(states) != 2 {
		t.Errorf("expected 2 states, got %d: %+v", len(states), states)
	}
}

func TestIsRunning(t *testing.T) {
	if IsRunning(nil) {
		t.Error("nil state should not be running")
	}
	if IsRunning(&ServerState{PID: 0}) {
		t.Error("zero PID should not be running")
	}
	if !IsRunning(&ServerState{PID: os.Getpid()}) {
		t.Error("current process should be running")
	}
	if IsRunning(&ServerState{PID: 999999999}) {
		t.Error("invalid PID should not be running")
	}
}

func TestEnsureLogDir(t *testing.T) {
	setTempHome(t)

	for i := 0; i < 2; i++ {
		if err := EnsureLogDir(); err != nil {
			t.Fatalf("EnsureLogDir() error = %v", err)
		}
	}
	if info, err := os.Stat(LogDir()); err != nil || !info.IsDir() {
		t.Errorf("expected log directory to exist: %v", err)
	}
}

func TestWithLock_ExecutesCallback(t *testing.T) {
	setTempHome(t)

	called := false
	err := WithLock("example", 1*time.Second, func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock() error = %v", err)
	}
	if !called {
		t.Error("expected callback to be called")
	}
}

func TestWithLock_ReturnsCallbackError(t *testing.T) {
	setTempHome(t)

	expectedErr := os.ErrNotExist
	err := WithLock("example", 1*time.Second, func() error {
		return expectedErr
	})
	if err != expectedErr {
		t.Errorf("WithLock() error = %v, want %v", err, expectedErr)
	}
}

func TestWithLock_ExclusiveAccess(t *testing.T) {
	setTempHome(t)

	lockAcquired := make(chan struct{})
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		err := WithLock("example", 5*time.Second, func() error {
			close(lockAcquired)
			<-done
			return nil
		})
		if err != nil {
			t.Errorf("first WithLock() error = %v", err)
		}
	}()

	<-lockAcquired

	err := WithLock("example", 100*time.Millisecond, func() error {
		t.Error("second callback should not have been called")
		return nil
	})
	if err == nil {
		t.Error("expected timeout error when lock is held")
	}

	close(done)
	<-finished
}

func TestCheckAndClean_NoStateFile(t *testing.T) {
	setTempHome(t)

	cleaned, err := CheckAndClean("nonexistent")
	if err != nil {
		t.Fatalf("CheckAndClean() error = %v", err)
	}
	if cleaned {
		t.Error("expected cleaned=false when no state file exists")
	}
}

func TestCheckAndClean_RunningProcess(t *testing.T) {
	setTempHome(t)

	if err := Save(&ServerState{Target: "example", PID: os.Getpid()}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	cleaned, err := CheckAndClean("example")
	if err != nil {
		t.Fatalf("CheckAndClean() error = %v", err)
	}
	if cleaned {
		t.Error("expected cleaned=false when process is running")
	}
	if _, err := Load("example"); err != nil {
		t.Error("expected state file to still exist")
	}
}

func TestCheckAndClean_DeadProcess(t *testing.T) {
	setTempHome(t)

	if err := Save(&ServerState{Target: "example", PID: 999999999}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	cleaned, err := CheckAndClean("example")
	if err != nil {
		t.Fatalf("CheckAndClean() error = %v", err)
	}
	if !cleaned {
		t.Error("expected cleaned=true when process is dead")
	}
	if _, err := Load("example"); !os.IsNotExist(err) {
		t.Errorf("expected state file to be deleted, got %v", err)
	}
}

func TestCheckAndClean_CorruptFile(t *testing.T) {
	setTempHome(t)

	if err := os.MkdirAll(StateDir(), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(StatePath("example"), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	cleaned, err := CheckAndClean("example")
	if err != nil {
		t.Fatalf("CheckAndClean() error = %v", err)
	}
	if !cleaned {
		t.Error("expected corrupt state file to be cleaned")
	}
}

// startSleeper runs a child process that is reaped as soon as it exits, so
// VerifyPID turns false without waiting on a zombie.
func startSleeper(t *testing.T) (*ServerState, <-chan struct{}) {
	t.Helper()
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start sleep: %v", err)
	}
	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		<-exited
	})
	return &ServerState{Target: "example", PID: cmd.Process.Pid}, exited
}

func TestStop_TerminatesProcess(t *testing.T) {
	st, exited := startSleeper(t)

	if err := Stop(st, 2*time.Second); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	select {
	case <-exited:
	case <-time.After(3 * time.Second):
		t.Fatal("process still running after Stop")
	}
}

func TestStop_NotRunning(t *testing.T) {
	if err := Stop(nil, time.Second); err != nil {
		t.Errorf("Stop(nil) = %v, want nil", err)
	}
	if err := Stop(&ServerState{Target: "gone", PID: 999999999}, time.Second); err != nil {
		t.Errorf("Stop on a dead PID = %v, want nil", err)
	}
}

func TestNotify(t *testing.T) {
	st, exited := startSleeper(t)

	if err := Notify(st, syscall.SIGTERM); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	select {
	case <-exited:
	case <-time.After(3 * time.Second):
		t.Fatal("signal not delivered")
	}

	if err := Notify(&ServerState{Target: "gone", PID: 999999999}, syscall.SIGHUP); err == nil {
		t.Error("expected error notifying a dead server")
	}
	if err := Notify(nil, syscall.SIGHUP); err == nil {
		t.Error("expected error notifying without state")
	}
}
