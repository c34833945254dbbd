package config

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/flowstudio/vue-collection-cluster/pkg/descriptor"
)

// ValidationError represents a build file validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "validation errors:\n  - " + strings.Join(msgs, "\n  - ")
}

// Validate checks the build file structure. Field-level checks on the static
// parameters themselves are left to descriptor.Resolve.
func Validate(b *BuildFile) error {
	var errs ValidationErrors

	if b.Version != "1" {
		errs = append(errs, ValidationError{"version", fmt.Sprintf("unsupported version '%s' (expected '1')", b.Version)})
	}

	if b.Requires != "" {
		if _, err := semver.NewConstraint(b.Requires); err != nil {
			errs = append(errs, ValidationError{"requires", fmt.Sprintf("invalid version constraint: %v", err)})
		}
	}

	if len(b.Targets) == 0 {
		errs = append(errs, ValidationError{"targets", "at least one target is required"})
	}

	names := make(map[string]bool)
	for i, t := range b.Targets {
		prefix := fmt.Sprintf("targets[%d]", i)

		if t.Name == "" {
			errs = append(errs, ValidationError{prefix + ".name", "is required"})
		} else if names[t.Name] {
			errs = append(errs, ValidationError{prefix + ".name", fmt.Sprintf("duplicate target name '%s'", t.Name)})
		} else {
			names[t.Name] = true
		}

		if t.Preset != "" {
			if _, ok := descriptor.Preset(t.Preset); !ok {
				errs = append(errs, ValidationError{prefix + ".preset", fmt.Sprintf("unknown preset '%s' (expected '%s' or '%s')", t.Preset, descriptor.PresetLibrary, descriptor.PresetExample)})
			}
		}

		if t.Output.Library != nil {
			if _, ok := descriptor.ParseModuleFormat(t.Output.Library.Format); !ok {
				errs = append(errs, ValidationError{prefix + ".output.library.format", "must be 'umd', 'commonjs', 'esm', or 'none'"})
			}
		}

		for j, rule := range t.Rules {
			for k, use := range rule.Use {
				if use.Loader == "" {
					errs = append(errs, ValidationError{fmt.Sprintf("%s.rules[%d].use[%d].loader", prefix, j, k), "is required"})
				}
			}
		}

		if t.DevServer != nil {
			if t.DevServer.Port < 0 {
				errs = append(errs, ValidationError{prefix + ".devServer.port", "must be a positive integer"})
			}
			if t.DevServer.Port > 65535 {
				errs = append(errs, ValidationError{prefix + ".devServer.port", "must be <= 65535"})
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// CheckRequires verifies that version satisfies the build file's requires
// constraint. Development builds ("dev" or an unparsable version) always pass.
func (b *BuildFile) CheckRequires(version string) error {
	if b.Requires == "" || version == "" || version == "dev" {
		return nil
	}

	constraint, err := semver.NewConstraint(b.Requires)
	if err != nil {
		return fmt.Errorf("parsing requires constraint: %w", err)
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return nil
	}

	if !constraint.Check(v) {
		return fmt.Errorf("build file requires ccbuild %s, running %s", b.Requires, v)
	}
	return nil
}
