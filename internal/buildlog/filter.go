// SPDX-License-Identifier: MPL-2.0

package buildlog

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/charmbracelet/log"
)

// timestampMarker matches the structural marker of engine-side progress
// lines: a bracketed UTC timestamp like "[2024-01-01_00-00-05]".
var timestampMarker = regexp.MustCompile(`\[\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}\]`)

// ErrCleanup is the sentinel error wrapped by CleanupError.
var ErrCleanup = errors.New("log cleanup failed")

// CleanupError is returned when post-run log bookkeeping fails: a filter
// write failed or an empty artifact could not be deleted. It is a
// non-primary error; callers must not let it mask a build failure, but a
// successful build with a CleanupError still reports overall failure.
type CleanupError struct {
	// Path is the artifact involved.
	Path string
	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *CleanupError) Error() string {
	return fmt.Sprintf("log cleanup %q: %v", e.Path, e.Cause)
}

// Unwrap returns ErrCleanup so callers can use errors.Is.
func (e *CleanupError) Unwrap() error { return ErrCleanup }

// FilterSpecific scans the complete log line-by-line and copies every line
// matching the timestamp marker, in original order, to the specific log.
// It returns the number of matching lines; the specific log file exists
// afterwards even when that number is zero (Finalize deletes it then).
func FilterSpecific(a Artifact) (matches int, err error) {
	in, err := os.Open(a.CompleteLogPath)
	if err != nil {
		return 0, fmt.Errorf("open complete log: %w", err)
	}
	defer func() { _ = in.Close() }() // Read-only file; close error non-critical

	out, err := os.OpenFile(a.SpecificLogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create specific log: %w", err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close specific log: %w", closeErr)
		}
	}()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		if !timestampMarker.Match(scanner.Bytes()) {
			continue
		}
		if _, err := out.Write(append(scanner.Bytes(), '\n')); err != nil {
			return matches, fmt.Errorf("write specific log line: %w", err)
		}
		matches++
	}
	if err := scanner.Err(); err != nil {
		return matches, fmt.Errorf("read complete log: %w", err)
	}
	return matches, nil
}

// Finalize post-processes the artifacts after a run. An empty complete log
// is deleted rather than kept as a zero-byte file; otherwise the specific
// log is derived from it and deleted again if no line matched. The returned
// error, if any, is a CleanupError.
func Finalize(a Artifact, logger *log.Logger) error {
	info, err := os.Stat(a.CompleteLogPath)
	if err != nil {
		logger.Warn("complete log does not exist", "path", a.CompleteLogPath)
		return nil
	}

	if info.Size() == 0 {
		if err := os.Remove(a.CompleteLogPath); err != nil {
			return &CleanupError{Path: a.CompleteLogPath, Cause: err}
		}
		logger.Debug("removed empty complete log", "path", a.CompleteLogPath)
		return nil
	}
	logger.Info("complete log is ready", "path", a.CompleteLogPath)

	matches, err := FilterSpecific(a)
	if err != nil {
		return &CleanupError{Path: a.SpecificLogPath, Cause: err}
	}

	if matches == 0 {
		logger.Info("no matching specific log lines found")
		if err := os.Remove(a.SpecificLogPath); err != nil {
			return &CleanupError{Path: a.SpecificLogPath, Cause: err}
		}
		return nil
	}

	logger.Info("specific log is ready", "path", a.SpecificLogPath, "lines", matches)
	return nil
}
