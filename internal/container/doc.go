// SPDX-License-Identifier: MPL-2.0

// Package container abstracts the external image-build engines (Docker and
// Podman CLIs). The engine is treated as an opaque executable: it consumes a
// staged context directory and flags, emits a combined text stream, and
// returns an exit code. StartBuild exposes that stream and the exit-code
// wait so callers can multiplex output line-by-line in real time.
package container
