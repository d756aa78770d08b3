// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	// ContainerEngineDocker uses Docker as the container engine.
	ContainerEngineDocker ContainerEngine = "docker"
	// ContainerEnginePodman uses Podman as the container engine.
	ContainerEnginePodman ContainerEngine = "podman"
)

var (
	// ErrInvalidContainerEngine is returned when a ContainerEngine value is not recognized.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
	// ErrInvalidDirPath is returned when a configured directory path is whitespace-only.
	ErrInvalidDirPath = errors.New("invalid directory path")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ContainerEngine selects which engine CLI runs the builds.
	ContainerEngine string

	// UIConfig holds user interface settings.
	UIConfig struct {
		// Verbose enables debug-level logging and full error chains.
		Verbose bool `mapstructure:"verbose"`
	}

	// BuildConfig holds build invocation settings.
	BuildConfig struct {
		// BuildKit sets DOCKER_BUILDKIT=1 in the build child process.
		BuildKit bool `mapstructure:"buildkit"`
	}

	// Config is the application configuration.
	Config struct {
		// ContainerEngine selects docker or podman.
		ContainerEngine ContainerEngine `mapstructure:"container_engine"`
		// LogDir is where build log artifacts are written.
		LogDir string `mapstructure:"log_dir"`
		// ContextDir is the parent directory for staged build contexts.
		ContextDir string `mapstructure:"context_dir"`
		// CatalogPath optionally points at a custom ROS distro catalog file.
		CatalogPath string `mapstructure:"catalog_path"`
		// UI holds user interface settings.
		UI UIConfig `mapstructure:"ui"`
		// Build holds build invocation settings.
		Build BuildConfig `mapstructure:"build"`
	}

	// InvalidConfigError aggregates the field errors of a failed validation.
	InvalidConfigError struct {
		FieldErrs []error
	}
)

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrs))
	for i, err := range e.FieldErrs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig so callers can use errors.Is.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks that the engine value is one of the supported engines.
func (ce ContainerEngine) Validate() error {
	switch ce {
	case ContainerEngineDocker, ContainerEnginePodman:
		return nil
	default:
		return fmt.Errorf("%w: %q (valid: docker, podman)", ErrInvalidContainerEngine, string(ce))
	}
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		ContainerEngine: ContainerEngineDocker,
		LogDir:          os.TempDir(),
		ContextDir:      os.TempDir(),
		UI:              UIConfig{Verbose: false},
		Build:           BuildConfig{BuildKit: true},
	}
}

// Validate checks constraints the CUE schema cannot express, such as
// whitespace-only paths.
func (c *Config) Validate() error {
	var errs []error

	if err := c.ContainerEngine.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.LogDir != "" && strings.TrimSpace(c.LogDir) == "" {
		errs = append(errs, fmt.Errorf("%w: log_dir is whitespace-only", ErrInvalidDirPath))
	}
	if c.ContextDir != "" && strings.TrimSpace(c.ContextDir) == "" {
		errs = append(errs, fmt.Errorf("%w: context_dir is whitespace-only", ErrInvalidDirPath))
	}
	if c.CatalogPath != "" && strings.TrimSpace(c.CatalogPath) == "" {
		errs = append(errs, fmt.Errorf("%w: catalog_path is whitespace-only", ErrInvalidDirPath))
	}

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrs: errs}
	}
	return nil
}
