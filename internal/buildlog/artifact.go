// SPDX-License-Identifier: MPL-2.0

// Package buildlog captures and post-processes the output of a build run.
//
// Each invocation produces two plain-text files in the log directory: the
// complete log (every line the engine emitted, in order) and the specific
// log (only the lines carrying a bracketed timestamp marker). Empty
// artifacts are deleted rather than kept as zero-byte files.
package buildlog

import (
	"path/filepath"
	"time"

	"rosimg-cli/internal/imageref"
)

// timestampLayout is the UTC timestamp embedded in log file names and
// matched by the specific-log marker pattern.
const timestampLayout = "2006-01-02_15-04-05"

// Artifact names the two log files of one build invocation.
type Artifact struct {
	// CompleteLogPath receives every output line of the run.
	CompleteLogPath string
	// SpecificLogPath receives the subset of lines matching the
	// timestamp marker; derived from the complete log after the run.
	SpecificLogPath string
}

// NewArtifact derives deterministic log file names from the sanitized image
// tag and the given wall-clock time (taken as UTC).
func NewArtifact(dir string, tag imageref.Reference, now time.Time) Artifact {
	prefix := "build_img_" + tag.Sanitize() + "_" + now.UTC().Format(timestampLayout)
	return Artifact{
		CompleteLogPath: filepath.Join(dir, prefix+"_complete.log"),
		SpecificLogPath: filepath.Join(dir, prefix+"_specific.log"),
	}
}
