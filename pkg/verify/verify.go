// Package verify smoke-tests library bundles by evaluating them in an
// embedded JavaScript runtime.
package verify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/flowstudio/vue-collection-cluster/pkg/transform"
)

// DefaultTimeout bounds a single evaluation.
const DefaultTimeout = 10 * time.Second

// Report describes what evaluating a bundle left behind.
type Report struct {
	Global  string   `json:"global"`
	Defined bool     `json:"defined"`
	Type    string   `json:"type"`           // typeof the global
	Keys    []string `json:"keys,omitempty"` // own property names when the global is an object
	Console []string `json:"console,omitempty"`
}

// ErrNotDefined is returned when the bundle ran but did not publish its global.
var ErrNotDefined = errors.New("library global not defined")

// Library evaluates a UMD or IIFE bundle in a fresh runtime with self and
// window aliased to the global object, then reports on the global called
// name. The returned error wraps ErrNotDefined when the global is missing.
func Library(ctx context.Context, code, name string, timeout time.Duration) (*Report, error) {
	if name == "" {
		return nil, errors.New("library name is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// Lower to ES2015 for goja compatibility
	lowered, err := transform.Lower(code)
	if err != nil {
		return nil, err
	}

	vm := goja.New()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	go func() {
		<-ctx.Done()
		vm.Interrupt("execution timeout exceeded")
	}()

	report := &Report{Global: name}

	console := vm.NewObject()
	logFn := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		report.Console = append(report.Console, strings.Join(parts, " "))
		return goja.Undefined()
	}
	_ = console.Set("log", logFn)
	_ = console.Set("info", logFn)
	_ = console.Set("warn", logFn)
	_ = console.Set("error", logFn)
	_ = vm.Set("console", console)

	global := vm.GlobalObject()
	_ = vm.Set("self", global)
	_ = vm.Set("window", global)

	if _, err := vm.RunString(lowered); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("evaluation exceeded %s timeout", timeout)
		}
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, fmt.Errorf("evaluation interrupted: %s", interrupted.Value())
		}
		return nil, fmt.Errorf("runtime error: %w", err)
	}

	val := global.Get(name)
	if val == nil || goja.IsUndefined(val) {
		report.Type = "undefined"
		return report, fmt.Errorf("%w: %s", ErrNotDefined, name)
	}

	report.Defined = true
	report.Type = typeOf(vm, val)
	if obj, ok := val.(*goja.Object); ok && report.Type == "object" {
		report.Keys = obj.Keys()
		sort.Strings(report.Keys)
	}
	return report, nil
}

// typeOf evaluates the typeof operator against v.
func typeOf(vm *goja.Runtime, v goja.Value) string {
	fn, err := vm.RunString("(function (v) { return typeof v; })")
	if err != nil {
		return "unknown"
	}
	call, ok := goja.AssertFunction(fn)
	if !ok {
		return "unknown"
	}
	res, err := call(goja.Undefined(), v)
	if err != nil {
		return "unknown"
	}
	return res.String()
}
