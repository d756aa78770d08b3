// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
)

// Engine defines the operations this tool needs from a container engine.
type Engine interface {
	// Name returns the engine name (docker or podman).
	Name() string
	// Available checks if the engine is available on the system.
	Available() bool
	// Version returns the engine version.
	Version(ctx context.Context) (string, error)
	// ImageExists checks if an image exists in the engine's local store.
	// Inspect failures are reported as "absent", never as an error.
	ImageExists(ctx context.Context, image string) (bool, error)
	// StartBuild launches a build as a child process and returns a handle
	// to its combined output stream and exit status.
	StartBuild(ctx context.Context, spec BuildSpec) (*BuildProcess, error)
}

// BuildSpec is the fully resolved child-process specification for one build:
// the complete argument vector and any extra environment variables set for
// the child only. Feature toggles like BuildKit travel here instead of
// through mutations of the parent process environment.
type BuildSpec struct {
	// Args is the argument vector passed after the engine binary name.
	Args []string
	// Env holds extra KEY=value pairs for the child process environment.
	Env map[string]string
}

// EngineType identifies the container engine type.
type EngineType string

const (
	// EngineTypeDocker selects the Docker CLI.
	EngineTypeDocker EngineType = "docker"
	// EngineTypePodman selects the Podman CLI.
	EngineTypePodman EngineType = "podman"
)

// ErrEngineNotAvailable is returned when a container engine is not available.
type ErrEngineNotAvailable struct {
	Engine string
	Reason string
}

func (e *ErrEngineNotAvailable) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// NewEngine creates a new container engine based on preference, falling back
// to the other engine when the preferred one is missing.
func NewEngine(preferredType EngineType) (Engine, error) {
	switch preferredType {
	case EngineTypeDocker:
		engine := NewDockerEngine()
		if engine.Available() {
			return engine, nil
		}
		podmanEngine := NewPodmanEngine()
		if podmanEngine.Available() {
			return podmanEngine, nil
		}
		return nil, &ErrEngineNotAvailable{
			Engine: "docker",
			Reason: "docker is not installed or not accessible, and podman fallback is also not available",
		}

	case EngineTypePodman:
		engine := NewPodmanEngine()
		if engine.Available() {
			return engine, nil
		}
		dockerEngine := NewDockerEngine()
		if dockerEngine.Available() {
			return dockerEngine, nil
		}
		return nil, &ErrEngineNotAvailable{
			Engine: "podman",
			Reason: "podman is not installed or not accessible, and docker fallback is also not available",
		}

	default:
		return nil, fmt.Errorf("unknown container engine type: %s", preferredType)
	}
}

// AutoDetectEngine tries to find an available container engine.
func AutoDetectEngine() (Engine, error) {
	docker := NewDockerEngine()
	if docker.Available() {
		return docker, nil
	}

	podman := NewPodmanEngine()
	if podman.Available() {
		return podman, nil
	}

	return nil, &ErrEngineNotAvailable{
		Engine: "any",
		Reason: "no container engine (docker or podman) is available on this system",
	}
}
