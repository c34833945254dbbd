// Package transform implements the loader chains that transform rules attach
// to source files before they reach the bundler.
package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/flowstudio/vue-collection-cluster/pkg/descriptor"
)

// Source is a module as it moves through a chain.
type Source struct {
	Path     string
	Contents string
	// Loader tells the bundler how to parse Contents once the chain is done.
	Loader api.Loader
}

// Transformer is one step of a chain.
type Transformer interface {
	Apply(src Source) (Source, error)
}

// TransformerFunc adapts a function to Transformer.
type TransformerFunc func(src Source) (Source, error)

// Apply calls f(src).
func (f TransformerFunc) Apply(src Source) (Source, error) {
	return f(src)
}

// Factory builds a Transformer from step options. The registry is passed so
// transformers can build nested chains.
type Factory func(options map[string]any, r *Registry) (Transformer, error)

// Chain runs transformers in declaration order.
type Chain []Transformer

// Apply feeds src through every step. The first error stops the chain.
func (c Chain) Apply(src Source) (Source, error) {
	for _, t := range c {
		var err error
		src, err = t.Apply(src)
		if err != nil {
			return Source{}, err
		}
	}
	return src, nil
}

// Registry maps loader names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry holding the built-in loaders: babel, vue
// and raw.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("babel", newBabel)
	r.Register("vue", newVue)
	r.Register("raw", newRaw)
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Names returns the registered loader names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the transformer for a single step.
func (r *Registry) New(step descriptor.TransformStep) (Transformer, error) {
	r.mu.RLock()
	f, ok := r.factories[step.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown loader '%s' (known: %v)", step.Name, r.Names())
	}
	t, err := f(step.Options, r)
	if err != nil {
		return nil, fmt.Errorf("loader '%s': %w", step.Name, err)
	}
	return t, nil
}

// Chain builds a chain from steps.
func (r *Registry) Chain(steps []descriptor.TransformStep) (Chain, error) {
	chain := make(Chain, 0, len(steps))
	for _, step := range steps {
		t, err := r.New(step)
		if err != nil {
			return nil, err
		}
		chain = append(chain, t)
	}
	return chain, nil
}

// stepsOption decodes a nested chain option. Each element is either a loader
// name or a map with "loader" and optional "options" keys.
func stepsOption(v any) ([]descriptor.TransformStep, error) {
	var items []any
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case string:
		items = []any{tv}
	case []string:
		for _, s := range tv {
			items = append(items, s)
		}
	case []any:
		items = slices.Clone(tv)
	default:
		return nil, fmt.Errorf("expected a loader list, got %T", v)
	}

	steps := make([]descriptor.TransformStep, 0, len(items))
	for i, item := range items {
		switch it := item.(type) {
		case string:
			steps = append(steps, descriptor.TransformStep{Name: it})
		case map[string]any:
			name, _ := it["loader"].(string)
			if name == "" {
				return nil, fmt.Errorf("item %d: loader name is required", i)
			}
			opts, _ := it["options"].(map[string]any)
			steps = append(steps, descriptor.TransformStep{Name: name, Options: opts})
		default:
			return nil, fmt.Errorf("item %d: expected a loader name or object, got %T", i, item)
		}
	}
	return steps, nil
}

func boolOption(options map[string]any, key string, def bool) (bool, error) {
	v, ok := options[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("option '%s' must be a boolean, got %T", key, v)
	}
	return b, nil
}

func stringOption(options map[string]any, key, def string) (string, error) {
	v, ok := options[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("option '%s' must be a string, got %T", key, v)
	}
	return s, nil
}

// jsString quotes s as a JavaScript string literal. Markup is left unescaped
// so templates stay readable in the bundle.
func jsString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
}
