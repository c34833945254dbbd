// Package state tracks running ccbuild dev servers.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// ServerState represents a running dev server.
type ServerState struct {
	Target    string    `json:"target"`
	BuildFile string    `json:"build_file"`
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	URL       string    `json:"url"`
	LogFile   string    `json:"log_file,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// BaseDir returns the base ccbuild directory (~/.ccbuild/).
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ccbuild")
}

// StateDir returns the directory for state files (~/.ccbuild/state/).
func StateDir() string {
	return filepath.Join(BaseDir(), "state")
}

// LogDir returns the directory for log files (~/.ccbuild/logs/).
func LogDir() string {
	return filepath.Join(BaseDir(), "logs")
}

// StatePath returns the path to the state file for a target.
func StatePath(target string) string {
	return filepath.Join(StateDir(), target+".json")
}

// LogPath returns the default log file path for a target's dev server.
func LogPath(target string) string {
	return filepath.Join(LogDir(), target+".log")
}

// LockPath returns the path to the lock file for a target.
func LockPath(target string) string {
	return filepath.Join(StateDir(), target+".lock")
}

// Load reads a server state file.
func Load(target string) (*ServerState, error) {
	data, err := os.ReadFile(StatePath(target))
	if err != nil {
		return nil, err
	}

	var st ServerState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing state file: %w", err)
	}

	return &st, nil
}

// Save writes a server state file.
func Save(st *ServerState) error {
	if err := os.MkdirAll(StateDir(), 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	if err := os.WriteFile(StatePath(st.Target), data, 0644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}

	return nil
}

// Delete removes a state file.
func Delete(target string) error {
	if err := os.Remove(StatePath(target)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns all recorded dev servers, skipping unreadable files.
func List() ([]ServerState, error) {
	entries, err := os.ReadDir(StateDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var states []ServerState
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		st, err := Load(entry.Name()[:len(entry.Name())-len(".json")])
		if err != nil {
			continue
		}
		states = append(states, *st)
	}

	return states, nil
}

// IsRunning checks if the dev server process is still alive.
func IsRunning(st *ServerState) bool {
	if st == nil {
		return false
	}
	return VerifyPID(st.PID)
}

// VerifyPID checks if a process with the given PID is running.
func VerifyPID(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 checks for existence without killing
	return process.Signal(syscall.Signal(0)) == nil
}

// Notify sends sig to a running dev server.
func Notify(st *ServerState, sig os.Signal) error {
	if st == nil {
		return errors.New("no dev server state")
	}
	if !IsRunning(st) {
		return fmt.Errorf("dev server for '%s' is not running", st.Target)
	}
	process, err := os.FindProcess(st.PID)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", st.PID, err)
	}
	if err := process.Signal(sig); err != nil {
		return fmt.Errorf("signaling %d: %w", st.PID, err)
	}
	return nil
}

// Stop sends SIGTERM to a dev server and SIGKILL if it is still alive after
// grace. A server that is already gone is not an error.
func Stop(st *ServerState, grace time.Duration) error {
	if st == nil || !VerifyPID(st.PID) {
		return nil
	}

	process, err := os.FindProcess(st.PID)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", st.PID, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return fmt.Errorf("sending SIGTERM to %d: %w", st.PID, err)
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !VerifyPID(st.PID) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := process.Signal(syscall.SIGKILL); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("sending SIGKILL to %d: %w", st.PID, err)
	}
	return nil
}

// CheckAndClean removes the state file of a target whose process is gone or
// whose state file is corrupt. It reports whether a file was removed.
func CheckAndClean(target string) (bool, error) {
	st, err := Load(target)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		if delErr := Delete(target); delErr != nil {
			return false, fmt.Errorf("state file corrupt and failed to delete: %w", delErr)
		}
		return true, nil
	}

	if VerifyPID(st.PID) {
		return false, nil
	}

	if err := Delete(target); err != nil {
		return false, err
	}
	return true, nil
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir() error {
	return os.MkdirAll(LogDir(), 0755)
}

// WithLock executes fn while holding an exclusive lock on the target state.
// Returns error if lock cannot be acquired within timeout.
func WithLock(target string, timeout time.Duration, fn func() error) error {
	if err := os.MkdirAll(StateDir(), 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	lockFile, err := os.OpenFile(LockPath(target), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("opening lock file: %w", err)
	}
	defer lockFile.Close()

	deadline := time.Now().Add(timeout)
	for {
		err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout acquiring state lock for %s (another ccbuild may be starting)", target)
		}
		time.Sleep(100 * time.Millisecond)
	}
	defer func() {
		_ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)
	}()

	return fn()
}
