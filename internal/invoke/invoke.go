// SPDX-License-Identifier: MPL-2.0

package invoke

import (
	"context"
	"fmt"

	"rosimg-cli/internal/buildlog"
	"rosimg-cli/internal/container"
)

// Invoker runs build invocations against a container engine.
type Invoker struct {
	engine container.Engine
}

// NewInvoker creates an Invoker bound to the given engine.
func NewInvoker(engine container.Engine) *Invoker {
	return &Invoker{engine: engine}
}

// Run executes the invocation as one child process and streams its combined
// output through mux until EOF, then waits for termination. The returned
// exit code is the authoritative build result; there are no retries. A
// streaming failure after a successful start does not hide the exit code.
func (iv *Invoker) Run(ctx context.Context, inv Invocation, mux *buildlog.Multiplexer) (int, error) {
	proc, err := iv.engine.StartBuild(ctx, container.BuildSpec{
		Args: inv.Args(),
		Env:  inv.Env(),
	})
	if err != nil {
		return 1, fmt.Errorf("start build for %q: %w", inv.Tag(), err)
	}

	consumeErr := mux.Consume(proc.Output)
	_ = proc.Output.Close()

	code, waitErr := proc.Wait()
	if waitErr != nil {
		return code, fmt.Errorf("build process for %q: %w", inv.Tag(), waitErr)
	}
	if consumeErr != nil {
		return code, fmt.Errorf("stream build output for %q: %w", inv.Tag(), consumeErr)
	}
	return code, nil
}
