// Package reload restarts the dev server when the build file changes.
package reload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/flowstudio/vue-collection-cluster/pkg/bundle"
	"github.com/flowstudio/vue-collection-cluster/pkg/descriptor"
	"github.com/flowstudio/vue-collection-cluster/pkg/logging"
)

//go:generate mockgen -destination=mock_server_test.go -package=reload . Server

// Server runs a dev server for a descriptor until its context is cancelled.
type Server interface {
	Serve(ctx context.Context, d *descriptor.Descriptor, hooks bundle.ServeHooks) error
}

// LoadFunc re-reads the build file and resolves the served target.
type LoadFunc func() (*descriptor.Descriptor, error)

// ReloadResult contains the result of a reload operation.
type ReloadResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Changes []Change `json:"changes,omitempty"`
}

// ErrNotStarted is returned when Reload or Wait run before Start.
var ErrNotStarted = errors.New("reloader not started")

// ErrExitedBeforeReady is returned when Serve returns without an error
// before reporting a listening address.
var ErrExitedBeforeReady = errors.New("dev server exited before it was ready")

// Reloader owns the running dev server and the descriptor it serves.
type Reloader struct {
	mu      sync.Mutex
	server  Server
	load    LoadFunc
	hooks   bundle.ServeHooks
	logger  *slog.Logger
	ctx     context.Context
	current *descriptor.Descriptor
	cancel  context.CancelFunc
	done    chan error
	failed  chan error // a server that was ready exited on its own
}

// NewReloader creates a reloader serving whatever load resolves.
func NewReloader(server Server, load LoadFunc, hooks bundle.ServeHooks) *Reloader {
	return &Reloader{
		server: server,
		load:   load,
		hooks:  hooks,
		logger: logging.NewDiscardLogger(),
		failed: make(chan error, 1),
	}
}

// SetLogger sets the logger.
func (r *Reloader) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Current returns the descriptor being served.
func (r *Reloader) Current() *descriptor.Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Start resolves the initial descriptor and blocks until its server is
// listening. A server that fails to start is returned as an error.
func (r *Reloader) Start(ctx context.Context) error {
	d, err := r.load()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx = ctx
	if err := r.startLocked(d); err != nil {
		return err
	}
	r.current = d
	return nil
}

// Reload re-resolves the target and restarts the server if the descriptor
// changed. On failure the previous descriptor keeps running.
func (r *Reloader) Reload() (*ReloadResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx == nil {
		return nil, ErrNotStarted
	}

	d, err := r.load()
	if err != nil {
		r.logger.Warn("keeping previous configuration", "error", err)
		return &ReloadResult{
			Success: false,
			Message: fmt.Sprintf("failed to load build file: %v", err),
		}, nil
	}

	changes := Diff(r.current, d)
	if len(changes) == 0 {
		r.logger.Info("no configuration changes detected")
		return &ReloadResult{Success: true, Message: "no changes detected"}, nil
	}

	for _, c := range changes {
		r.logger.Info("configuration changed", "field", c.Field, "old", c.Old, "new", c.New)
	}

	if err := r.stopLocked(); err != nil {
		r.logger.Warn("dev server exited with error", "error", err)
	}

	if err := r.startLocked(d); err != nil {
		r.logger.Error("new configuration failed to start, restoring previous", "error", err)
		if perr := r.startLocked(r.current); perr != nil {
			r.logger.Error("previous configuration failed to restart", "error", perr)
			r.notifyFailed(perr)
		}
		return &ReloadResult{
			Success: false,
			Message: fmt.Sprintf("dev server failed to start, kept previous configuration: %v", err),
			Changes: changes,
		}, nil
	}
	r.current = d

	return &ReloadResult{
		Success: true,
		Message: fmt.Sprintf("dev server restarted (%d changes)", len(changes)),
		Changes: changes,
	}, nil
}

// Wait blocks until the Start context is cancelled or the running server
// exits on its own, then shuts the server down and returns its error.
func (r *Reloader) Wait() error {
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()
	if ctx == nil {
		return ErrNotStarted
	}

	var exitErr error
	select {
	case <-ctx.Done():
	case exitErr = <-r.failed:
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.stopLocked(); err != nil {
		return err
	}
	return exitErr
}

// startLocked serves d and waits until the server reports ready, exits, or
// the Start context ends.
func (r *Reloader) startLocked(d *descriptor.Descriptor) error {
	ctx, cancel := context.WithCancel(r.ctx)
	done := make(chan error, 1)
	ready := make(chan struct{})

	var once sync.Once
	hooks := r.hooks
	onReady := r.hooks.OnReady
	hooks.OnReady = func(url string) {
		if onReady != nil {
			onReady(url)
		}
		once.Do(func() { close(ready) })
	}

	go func() {
		err := r.server.Serve(ctx, d, hooks)
		done <- err
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ready:
			if err == nil {
				err = errors.New("dev server exited")
			}
			r.logger.Error("dev server exited", "error", err)
			r.notifyFailed(err)
		default:
		}
	}()

	select {
	case <-ready:
	case err := <-done:
		cancel()
		if err == nil {
			err = ErrExitedBeforeReady
		}
		return err
	case <-r.ctx.Done():
	}

	r.cancel = cancel
	r.done = done
	return nil
}

func (r *Reloader) notifyFailed(err error) {
	select {
	case r.failed <- err:
	default:
	}
}

func (r *Reloader) stopLocked() error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()
	err := <-r.done
	r.cancel = nil
	r.done = nil
	return err
}
