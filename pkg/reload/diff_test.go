package reload

import (
	"testing"

	"github.com/flowstudio/vue-collection-cluster/pkg/descriptor"
)

func mustResolve(t *testing.T, mode descriptor.Mode, p descriptor.StaticParams) *descriptor.Descriptor {
	t.Helper()
	d, err := descriptor.Resolve(mode, p)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return d
}

func fields(changes []Change) []string {
	var out []string
	for _, c := range changes {
		out = append(out, c.Field)
	}
	return out
}

func TestDiff_Identical(t *testing.T) {
	a := mustResolve(t, descriptor.ModeDevelopment, descriptor.ExampleParams())
	b := mustResolve(t, descriptor.ModeDevelopment, descriptor.ExampleParams())

	if changes := Diff(a, b); len(changes) != 0 {
		t.Errorf("expected no changes, got %v", changes)
	}
}

func TestDiff_DevServerPort(t *testing.T) {
	p := descriptor.ExampleParams()
	a := mustResolve(t, descriptor.ModeDevelopment, p)
	p.DevServer.Port = 9100
	b := mustResolve(t, descriptor.ModeDevelopment, p)

	changes := Diff(a, b)
	if len(changes) != 1 || changes[0].Field != "devServer" {
		t.Fatalf("expected a single devServer change, got %v", changes)
	}
	if changes[0].Old == changes[0].New {
		t.Errorf("expected rendered values to differ, got %s", changes[0])
	}
}

func TestDiff_ModeSwitch(t *testing.T) {
	a := mustResolve(t, descriptor.ModeDevelopment, descriptor.LibraryParams())
	b := mustResolve(t, descriptor.ModeProduction, descriptor.LibraryParams())

	got := fields(Diff(a, b))
	want := []string{"mode", "sourceMap", "devServer", "productionExtras"}
	if len(got) != len(want) {
		t.Fatalf("expected fields %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("field %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestDiff_Aliases(t *testing.T) {
	p := descriptor.LibraryParams()
	a := mustResolve(t, descriptor.ModeProduction, p)
	p.ModuleAliases = map[string]string{"vue$": "vue/dist/vue.runtime.common.js"}
	b := mustResolve(t, descriptor.ModeProduction, p)

	changes := Diff(a, b)
	if len(changes) != 1 {
		t.Fatalf("expected one change, got %v", changes)
	}
	if changes[0].Old != "vue$=vue/dist/vue.common.js" || changes[0].New != "vue$=vue/dist/vue.runtime.common.js" {
		t.Errorf("unexpected rendering: %s", changes[0])
	}
}

func TestDiff_NilOld(t *testing.T) {
	b := mustResolve(t, descriptor.ModeProduction, descriptor.LibraryParams())

	changes := Diff(nil, b)
	if len(changes) != 12 {
		t.Fatalf("expected every field to change, got %d", len(changes))
	}
	for _, c := range changes {
		if c.Old != "<none>" {
			t.Errorf("%s: expected old value <none>, got %s", c.Field, c.Old)
		}
	}
}
