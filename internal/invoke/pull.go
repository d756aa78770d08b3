// SPDX-License-Identifier: MPL-2.0

package invoke

import (
	"context"
	"fmt"

	"rosimg-cli/internal/container"
	"rosimg-cli/internal/imageref"
)

// LocalImageState describes whether the base image is present in the
// engine's local store.
type LocalImageState int

const (
	// LocalImageAbsent means no local copy exists (or the inspect query
	// failed, which is treated the same way).
	LocalImageAbsent LocalImageState = iota
	// LocalImagePresent means a local copy exists.
	LocalImagePresent
)

// DetectLocalImage queries the engine for a local copy of the base image.
// An inspect failure is reported as absent, never as an error: the worst
// outcome of a wrong answer is a redundant notice, not a wrong build.
func DetectLocalImage(ctx context.Context, engine container.Engine, base imageref.Reference) LocalImageState {
	exists, err := engine.ImageExists(ctx, string(base))
	if err != nil || !exists {
		return LocalImageAbsent
	}
	return LocalImagePresent
}

// DecidePull resolves the pull policy. The returned flag states whether
// --pull is added to the command line: it is added exactly when the user
// requested it. The notice explains to the user what the engine will do
// about the base image.
func DecidePull(pullRequested bool, state LocalImageState, base imageref.Reference) (addFlag bool, notice string) {
	switch {
	case pullRequested:
		return true, fmt.Sprintf("--pull specified, the build engine will pull/update base image '%s'", base)
	case state == LocalImageAbsent:
		return false, fmt.Sprintf("base image '%s' not found locally, the build engine will attempt to pull it", base)
	default:
		return false, fmt.Sprintf("using local base image '%s'", base)
	}
}
