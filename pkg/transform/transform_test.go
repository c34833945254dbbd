package transform

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowstudio/vue-collection-cluster/pkg/descriptor"
)

type recordingTransformer struct {
	suffix string
	seen   []Source
}

func (r *recordingTransformer) Apply(src Source) (Source, error) {
	r.seen = append(r.seen, src)
	src.Contents += r.suffix
	return src, nil
}

func stepOf(name string, options map[string]any) descriptor.TransformStep {
	return descriptor.TransformStep{Name: name, Options: options}
}

func TestChain_AppliesInOrder(t *testing.T) {
	chain := Chain{
		&recordingTransformer{suffix: "a"},
		&recordingTransformer{suffix: "b"},
		&recordingTransformer{suffix: "c"},
	}

	out, err := chain.Apply(Source{Contents: "x"})
	require.NoError(t, err)
	assert.Equal(t, "xabc", out.Contents)
}

func TestChain_StopsOnError(t *testing.T) {
	last := &recordingTransformer{}
	chain := Chain{
		TransformerFunc(func(Source) (Source, error) { return Source{}, errors.New("boom") }),
		last,
	}

	_, err := chain.Apply(Source{})
	require.EqualError(t, err, "boom")
	assert.Empty(t, last.seen)
}

func TestRegistry_UnknownLoader(t *testing.T) {
	_, err := NewRegistry().New(stepOf("sass", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown loader 'sass'")
}

func TestRegistry_Names(t *testing.T) {
	assert.Equal(t, []string{"babel", "raw", "vue"}, NewRegistry().Names())
}

func TestRegistry_BadOptions(t *testing.T) {
	r := NewRegistry()

	_, err := r.New(stepOf("babel", map[string]any{"target": "es5"}))
	assert.ErrorContains(t, err, "unsupported target 'es5'")

	_, err = r.New(stepOf("vue", map[string]any{"preserveWhitespace": "no"}))
	assert.ErrorContains(t, err, "must be a boolean")

	_, err = r.New(stepOf("vue", map[string]any{"script": []any{"nope"}}))
	assert.ErrorContains(t, err, "unknown loader 'nope'")
}

func TestStepsOption(t *testing.T) {
	steps, err := stepsOption([]any{
		"babel",
		map[string]any{"loader": "raw", "options": map[string]any{"k": "v"}},
	})
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "babel", steps[0].Name)
	assert.Equal(t, "raw", steps[1].Name)
	assert.Equal(t, "v", steps[1].Options["k"])

	steps, err = stepsOption("babel")
	require.NoError(t, err)
	assert.Len(t, steps, 1)

	_, err = stepsOption(42)
	assert.Error(t, err)

	_, err = stepsOption([]any{map[string]any{"options": nil}})
	assert.ErrorContains(t, err, "loader name is required")
}

func TestBabel_LowersSyntax(t *testing.T) {
	tr, err := NewRegistry().New(stepOf("babel", nil))
	require.NoError(t, err)

	out, err := tr.Apply(Source{Path: "/src/main.js", Contents: "const sq = (a) => a ** 2;\nexport default sq;\n"})
	require.NoError(t, err)

	assert.NotContains(t, out.Contents, "**")
	assert.Contains(t, out.Contents, "pow")
	assert.Contains(t, out.Contents, "export")
	assert.Equal(t, api.LoaderJS, out.Loader)
}

func TestBabel_SyntaxError(t *testing.T) {
	tr, err := NewRegistry().New(stepOf("babel", nil))
	require.NoError(t, err)

	_, err = tr.Apply(Source{Path: "/src/main.js", Contents: "const = ;"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error at line 1")
}

func TestLower(t *testing.T) {
	out, err := Lower("var o = { a: 1 };\nvar v = o?.a ?? 2;\n")
	require.NoError(t, err)
	assert.NotContains(t, out, "?.")
	assert.NotContains(t, out, "??")

	_, err = Lower("var = ;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error at line 1")
}

func TestRaw(t *testing.T) {
	tr, err := NewRegistry().New(stepOf("raw", nil))
	require.NoError(t, err)

	out, err := tr.Apply(Source{Contents: "a \"quoted\"\nline"})
	require.NoError(t, err)
	assert.Equal(t, "export default \"a \\\"quoted\\\"\\nline\";\n", out.Contents)
}

func TestCompile_FirstMatchWins(t *testing.T) {
	rules, err := Compile([]descriptor.TransformRule{
		{Test: `\.vue$`, Chain: []descriptor.TransformStep{{Name: "vue"}}},
		{Test: `\.(js|vue)$`, Chain: []descriptor.TransformStep{{Name: "babel"}}},
	}, nil)
	require.NoError(t, err)

	r, ok := rules.Match("/app/src/cluster.vue")
	require.True(t, ok)
	assert.Equal(t, 0, r.Index)

	r, ok = rules.Match("/app/src/main.js")
	require.True(t, ok)
	assert.Equal(t, 1, r.Index)

	_, ok = rules.Match("/app/src/style.css")
	assert.False(t, ok)
}

func TestCompile_IncludeExclude(t *testing.T) {
	root := t.TempDir()
	rules, err := Compile([]descriptor.TransformRule{{
		Test:    `\.js$`,
		Chain:   []descriptor.TransformStep{{Name: "babel"}},
		Include: []string{filepath.Join(root, "src")},
		Exclude: []string{"node_modules"},
	}}, nil)
	require.NoError(t, err)

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "src", "main.js"), true},
		{filepath.Join(root, "src", "node_modules", "x.js"), false},
		{filepath.Join(root, "srcx", "main.js"), false},
		{filepath.Join(root, "lib", "main.js"), false},
	}
	for _, tt := range tests {
		_, ok := rules.Match(tt.path)
		assert.Equal(t, tt.want, ok, tt.path)
	}
}

func TestCompile_RelativeIncludeUsesWorkingDirectory(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	rules, err := Compile([]descriptor.TransformRule{{
		Test:    `\.js$`,
		Chain:   []descriptor.TransformStep{{Name: "raw"}},
		Include: []string{"."},
	}}, nil)
	require.NoError(t, err)

	_, ok := rules.Match(filepath.Join(wd, "a.js"))
	assert.True(t, ok)
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile([]descriptor.TransformRule{{Test: "(", Chain: []descriptor.TransformStep{{Name: "babel"}}}}, nil)
	assert.ErrorContains(t, err, "rule 0: compiling test pattern")

	_, err = Compile([]descriptor.TransformRule{{Test: "x", Chain: []descriptor.TransformStep{{Name: "less"}}}}, nil)
	assert.ErrorContains(t, err, "unknown loader 'less'")

	_, err = Compile([]descriptor.TransformRule{{Test: "x", Chain: []descriptor.TransformStep{{Name: "raw"}}, Exclude: []string{"["}}}, nil)
	assert.ErrorContains(t, err, "compiling exclude pattern")
}

func TestRules_Filter(t *testing.T) {
	var none Rules
	assert.Equal(t, "$^", none.Filter())

	rules, err := Compile([]descriptor.TransformRule{
		{Test: `\.vue$`, Chain: []descriptor.TransformStep{{Name: "vue"}}},
		{Test: `\.js$`, Chain: []descriptor.TransformStep{{Name: "babel"}}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, `(?:\.vue$)|(?:\.js$)`, rules.Filter())
}

func TestRules_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	rules, err := Compile([]descriptor.TransformRule{
		{Test: `\.txt$`, Chain: []descriptor.TransformStep{{Name: "raw"}}},
	}, nil)
	require.NoError(t, err)

	src, ok, err := rules.Load(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "export default \"hello\";\n", src.Contents)

	_, ok, err = rules.Load(filepath.Join(dir, "main.js"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = rules.Load(filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "reading"))
}
