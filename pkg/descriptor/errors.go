package descriptor

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a missing or malformed static parameter.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// As lets errors.As fill a *ConfigurationError target as well as a value.
func (e ConfigurationError) As(target any) bool {
	p, ok := target.(**ConfigurationError)
	if !ok {
		return false
	}
	c := e
	*p = &c
	return true
}

// ConfigurationErrors is a collection of configuration errors. It unwraps to
// its elements, so errors.As finds the first ConfigurationError by value or
// by pointer.
type ConfigurationErrors []ConfigurationError

func (e ConfigurationErrors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return "invalid build configuration: " + e[0].Error()
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "invalid build configuration:\n  - " + strings.Join(msgs, "\n  - ")
}

// Unwrap exposes the individual errors.
func (e ConfigurationErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, err := range e {
		errs[i] = err
	}
	return errs
}

// Fields returns the offending field names in report order.
func (e ConfigurationErrors) Fields() []string {
	fields := make([]string, len(e))
	for i, err := range e {
		fields[i] = err.Field
	}
	return fields
}
