package transform

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/flowstudio/vue-collection-cluster/pkg/descriptor"
)

// Rule is a compiled transform rule.
type Rule struct {
	Index int
	Chain Chain

	test    *regexp.Regexp
	include []string
	exclude []*regexp.Regexp
}

// Matches reports whether the rule applies to path.
func (r *Rule) Matches(path string) bool {
	if !r.test.MatchString(path) {
		return false
	}
	if len(r.include) > 0 {
		included := false
		for _, prefix := range r.include {
			if hasPathPrefix(path, prefix) {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}
	for _, ex := range r.exclude {
		if ex.MatchString(path) {
			return false
		}
	}
	return true
}

// Rules is an ordered set of compiled rules.
type Rules []*Rule

// Compile builds matchers and chains for rules. Relative include prefixes are
// resolved against the working directory.
func Compile(rules []descriptor.TransformRule, r *Registry) (Rules, error) {
	if r == nil {
		r = NewRegistry()
	}

	compiled := make(Rules, 0, len(rules))
	for i, rule := range rules {
		test, err := regexp.Compile(rule.Test)
		if err != nil {
			return nil, fmt.Errorf("rule %d: compiling test pattern: %w", i, err)
		}

		chain, err := r.Chain(rule.Chain)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}

		c := &Rule{Index: i, Chain: chain, test: test}
		for _, inc := range rule.Include {
			abs, err := filepath.Abs(inc)
			if err != nil {
				return nil, fmt.Errorf("rule %d: resolving include '%s': %w", i, inc, err)
			}
			c.include = append(c.include, abs)
		}
		for _, ex := range rule.Exclude {
			re, err := regexp.Compile(ex)
			if err != nil {
				return nil, fmt.Errorf("rule %d: compiling exclude pattern: %w", i, err)
			}
			c.exclude = append(c.exclude, re)
		}
		compiled = append(compiled, c)
	}
	return compiled, nil
}

// Match returns the first rule that applies to path.
func (rs Rules) Match(path string) (*Rule, bool) {
	for _, r := range rs {
		if r.Matches(path) {
			return r, true
		}
	}
	return nil, false
}

// Filter returns a pattern matching any path at least one rule test could
// match. The bundler uses it to skip the plugin for everything else.
func (rs Rules) Filter() string {
	if len(rs) == 0 {
		return "$^"
	}
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = "(?:" + r.test.String() + ")"
	}
	return strings.Join(parts, "|")
}

// Load reads path and runs it through the first matching rule. ok is false
// when no rule applies.
func (rs Rules) Load(path string) (src Source, ok bool, err error) {
	rule, ok := rs.Match(path)
	if !ok {
		return Source{}, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, true, fmt.Errorf("reading %s: %w", path, err)
	}

	src, err = rule.Chain.Apply(Source{Path: path, Contents: string(data), Loader: loaderFor(path)})
	if err != nil {
		return Source{}, true, fmt.Errorf("transforming %s: %w", path, err)
	}
	return src, true, nil
}

func hasPathPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}
