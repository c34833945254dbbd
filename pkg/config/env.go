package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/flowstudio/vue-collection-cluster/pkg/descriptor"
)

// Environment holds the settings ccbuild reads from the process environment.
// It is read once at start-up; nothing below cmd/ looks at the environment.
type Environment struct {
	// NodeEnv is the conventional mode flag shared with the JavaScript tooling.
	NodeEnv string `envconfig:"NODE_ENV"`

	// Mode overrides NodeEnv when set.
	Mode string `envconfig:"CCBUILD_MODE"`

	LogLevel  string `envconfig:"CCBUILD_LOG_LEVEL" default:"warn"`
	LogFormat string `envconfig:"CCBUILD_LOG_FORMAT" default:"text"`
	LogFile   string `envconfig:"CCBUILD_LOG_FILE"`

	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// LoadEnvironment reads Environment from the process environment.
func LoadEnvironment() (*Environment, error) {
	var env Environment
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}
	return &env, nil
}

// ResolveMode picks the build mode. An explicit flag value wins, then
// CCBUILD_MODE, then NODE_ENV. Anything unrecognized is development.
func (e *Environment) ResolveMode(flag string) descriptor.Mode {
	switch {
	case flag != "":
		return descriptor.ParseMode(flag)
	case e.Mode != "":
		return descriptor.ParseMode(e.Mode)
	default:
		return descriptor.ParseMode(e.NodeEnv)
	}
}
