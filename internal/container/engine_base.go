// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine provides common implementation for CLI-based container
	// engines. Docker and Podman engines embed this struct; engine-specific
	// methods (Available, Version, ImageExists) remain on the concrete types.
	BaseCLIEngine struct {
		name        string // engine name for error messages
		binaryPath  string // resolved at construction via exec.LookPath
		execCommand ExecCommandFunc
	}

	// BuildProcess is a handle to a running build child process. Output is
	// the combined stdout+stderr stream; Wait must be called after Output
	// has been drained and returns the authoritative exit code.
	BuildProcess struct {
		// Output is the combined stdout+stderr stream. It reaches EOF when
		// the child closes both descriptors (normally at exit).
		Output io.ReadCloser

		cmd *exec.Cmd
	}
)

// WithName sets the engine name used in error messages.
func WithName(name string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.name = name
	}
}

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.execCommand = fn
	}
}

// NewBaseCLIEngine creates a new base engine with the given binary path.
func NewBaseCLIEngine(binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the engine name used in error messages.
func (e *BaseCLIEngine) Name() string {
	return e.name
}

// BinaryPath returns the path to the container engine binary.
func (e *BaseCLIEngine) BinaryPath() string {
	return e.binaryPath
}

// CreateCommand creates an exec.Cmd for the given arguments.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.binaryPath, args...)
}

// RunCommandStatus executes a command and returns only the error status.
func (e *BaseCLIEngine) RunCommandStatus(ctx context.Context, args ...string) error {
	cmd := e.CreateCommand(ctx, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return nil
}

// RunCommandWithOutput executes a command with stdout captured to a buffer.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.CreateCommand(ctx, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}

	return out.String(), nil
}

// StartBuild launches the build child process. Stdout and stderr share a
// single pipe so the caller sees lines in the exact order the child
// produced them, the way a terminal would.
func (e *BaseCLIEngine) StartBuild(ctx context.Context, spec BuildSpec) (*BuildProcess, error) {
	cmd := e.CreateCommand(ctx, spec.Args...)

	if len(spec.Env) > 0 {
		env := os.Environ()
		keys := make([]string, 0, len(spec.Env))
		for k := range spec.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			env = append(env, k+"="+spec.Env[k])
		}
		cmd.Env = env
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create output pipe: %w", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, fmt.Errorf("start %s build: %w", e.name, err)
	}

	// The parent's write end must be closed so the read end reaches EOF
	// when the child exits.
	_ = pw.Close()

	return &BuildProcess{Output: pr, cmd: cmd}, nil
}

// Wait blocks until the child process terminates and returns its exit code.
// A non-zero exit code is not an error here; only failures to observe the
// process (e.g. it never started) are. Callers must drain Output first or
// the child may block on a full pipe.
func (p *BuildProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// Killed by a signal (e.g. context cancellation); there is no
			// engine exit code to report.
			code = 1
		}
		return code, nil
	}
	return 1, fmt.Errorf("wait for build process: %w", err)
}
