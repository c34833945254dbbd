package transform

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// componentVar holds the component options inside the generated module.
const componentVar = "__component__"

var (
	blockOpen     = regexp.MustCompile(`<(template|script|style)(\s[^>]*)?>`)
	templateTag   = regexp.MustCompile(`<template(\s[^>]*)?>|</template\s*>`)
	scriptClose   = regexp.MustCompile(`</script\s*>`)
	styleClose    = regexp.MustCompile(`</style\s*>`)
	attrPattern   = regexp.MustCompile(`([^\s=]+)(?:\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'>]+)))?`)
	tagWhitespace = regexp.MustCompile(`>\s+<`)

	defaultExport = regexp.MustCompile(`(?m)^([ \t]*)export\s+default\s+`)
	namedDefault  = regexp.MustCompile(`export\s*\{\s*([A-Za-z_$][\w$]*)\s+as\s+default\s*\};?`)
)

// vue compiles a single-file component into an ES module. The default
// export is the script's component options with the template attached as a
// string, so it needs the compiler-included Vue build at runtime. Styles are
// injected into document.head when the module is evaluated.
type vue struct {
	preserveWhitespace bool
	script             Chain
}

func newVue(options map[string]any, r *Registry) (Transformer, error) {
	preserve, err := boolOption(options, "preserveWhitespace", true)
	if err != nil {
		return nil, err
	}

	steps, err := stepsOption(options["script"])
	if err != nil {
		return nil, fmt.Errorf("option 'script': %w", err)
	}
	script, err := r.Chain(steps)
	if err != nil {
		return nil, fmt.Errorf("option 'script': %w", err)
	}

	return &vue{preserveWhitespace: preserve, script: script}, nil
}

func (v *vue) Apply(src Source) (Source, error) {
	c, err := parseComponent(src.Contents)
	if err != nil {
		return Source{}, err
	}

	script := Source{Path: src.Path, Loader: api.LoaderJS}
	if c.script != nil {
		script.Contents = c.script.content
		if c.script.attrs["lang"] == "ts" {
			script.Loader = api.LoaderTS
		}
	}
	script, err = v.script.Apply(script)
	if err != nil {
		return Source{}, fmt.Errorf("script block: %w", err)
	}

	var b strings.Builder
	body, ok := bindDefaultExport(script.Contents)
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") && body != "" {
		b.WriteString("\n")
	}
	if !ok {
		b.WriteString("const " + componentVar + " = {};\n")
	}

	if c.template != nil {
		tpl := strings.TrimSpace(c.template.content)
		if !v.preserveWhitespace {
			tpl = tagWhitespace.ReplaceAllString(tpl, "><")
		}
		b.WriteString(componentVar + ".template = " + jsString(tpl) + ";\n")
	}

	if len(c.styles) > 0 {
		css := make([]string, len(c.styles))
		for i, s := range c.styles {
			css[i] = strings.TrimSpace(s.content)
		}
		b.WriteString("(function () {\n")
		b.WriteString("  if (typeof document === \"undefined\") return;\n")
		b.WriteString("  var style = document.createElement(\"style\");\n")
		b.WriteString("  style.textContent = " + jsString(strings.Join(css, "\n")) + ";\n")
		b.WriteString("  document.head.appendChild(style);\n")
		b.WriteString("})();\n")
	}

	b.WriteString("export default " + componentVar + ";\n")

	return Source{Path: src.Path, Contents: b.String(), Loader: script.Loader}, nil
}

// bindDefaultExport rewrites the module's default export into a const
// declaration of componentVar.
func bindDefaultExport(code string) (string, bool) {
	if loc := defaultExport.FindStringSubmatchIndex(code); loc != nil {
		indent := code[loc[2]:loc[3]]
		return code[:loc[0]] + indent + "const " + componentVar + " = " + code[loc[1]:], true
	}
	if loc := namedDefault.FindStringSubmatchIndex(code); loc != nil {
		name := code[loc[2]:loc[3]]
		return code[:loc[0]] + "const " + componentVar + " = " + name + ";" + code[loc[1]:], true
	}
	return code, false
}

type block struct {
	content string
	attrs   map[string]string
}

type component struct {
	template *block
	script   *block
	styles   []block
}

var errUnclosedComment = errors.New("unclosed comment")

// parseComponent splits a single-file component into its top-level blocks.
func parseComponent(contents string) (*component, error) {
	var c component
	pos := 0
	for pos < len(contents) {
		loc := blockOpen.FindStringSubmatchIndex(contents[pos:])
		if loc == nil {
			break
		}

		// Skip top-level comments that start before the next block.
		if ci := strings.Index(contents[pos:], "<!--"); ci >= 0 && ci < loc[0] {
			end := strings.Index(contents[pos+ci:], "-->")
			if end < 0 {
				return nil, errUnclosedComment
			}
			pos += ci + end + len("-->")
			continue
		}

		tag := contents[pos+loc[2] : pos+loc[3]]
		var rawAttrs string
		if loc[4] >= 0 {
			rawAttrs = contents[pos+loc[4] : pos+loc[5]]
		}
		attrs := parseAttrs(rawAttrs)
		start := pos + loc[1]

		if _, ok := attrs["src"]; ok {
			return nil, fmt.Errorf("<%s src> is not supported", tag)
		}

		var end, next int
		switch tag {
		case "template":
			var err error
			end, next, err = matchTemplate(contents, start)
			if err != nil {
				return nil, err
			}
		case "script":
			m := scriptClose.FindStringIndex(contents[start:])
			if m == nil {
				return nil, errors.New("unclosed <script> block")
			}
			end, next = start+m[0], start+m[1]
		case "style":
			m := styleClose.FindStringIndex(contents[start:])
			if m == nil {
				return nil, errors.New("unclosed <style> block")
			}
			end, next = start+m[0], start+m[1]
		}

		b := block{content: contents[start:end], attrs: attrs}
		if err := c.add(tag, b); err != nil {
			return nil, err
		}
		pos = next
	}
	return &c, nil
}

func (c *component) add(tag string, b block) error {
	lang := b.attrs["lang"]
	switch tag {
	case "template":
		if c.template != nil {
			return errors.New("multiple <template> blocks")
		}
		if lang != "" && lang != "html" {
			return fmt.Errorf("template lang '%s' is not supported", lang)
		}
		c.template = &b
	case "script":
		if c.script != nil {
			return errors.New("multiple <script> blocks")
		}
		if lang != "" && lang != "js" && lang != "ts" {
			return fmt.Errorf("script lang '%s' is not supported", lang)
		}
		c.script = &b
	case "style":
		if lang != "" && lang != "css" {
			return fmt.Errorf("style lang '%s' is not supported", lang)
		}
		if _, ok := b.attrs["scoped"]; ok {
			return errors.New("scoped styles are not supported")
		}
		c.styles = append(c.styles, b)
	}
	return nil
}

// matchTemplate finds the </template> closing the block opened before
// start, allowing nested <template> elements.
func matchTemplate(contents string, start int) (end, next int, err error) {
	depth := 1
	pos := start
	for {
		m := templateTag.FindStringIndex(contents[pos:])
		if m == nil {
			return 0, 0, errors.New("unclosed <template> block")
		}
		if strings.HasPrefix(contents[pos+m[0]:], "</") {
			depth--
			if depth == 0 {
				return pos + m[0], pos + m[1], nil
			}
		} else {
			depth++
		}
		pos += m[1]
	}
}

func parseAttrs(s string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrPattern.FindAllStringSubmatch(s, -1) {
		attrs[m[1]] = m[2] + m[3] + m[4]
	}
	return attrs
}
