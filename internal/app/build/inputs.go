// SPDX-License-Identifier: MPL-2.0

package build

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"rosimg-cli/internal/issue"
)

var (
	// ErrInvalidUser is returned when the requested image user is malformed.
	ErrInvalidUser = errors.New("invalid image user")

	// ErrInputFile is returned when a required input file is missing or
	// holds nothing but whitespace.
	ErrInputFile = errors.New("required input file")
)

// validateUser checks the requested image user: it must be non-empty after
// trimming and contain no whitespace.
func validateUser(user string) (string, error) {
	trimmed := strings.TrimSpace(user)
	if trimmed == "" {
		return "", fmt.Errorf("%w: user must be non-empty", ErrInvalidUser)
	}
	if strings.IndexFunc(trimmed, unicode.IsSpace) >= 0 {
		return "", fmt.Errorf("%w: %q contains whitespace", ErrInvalidUser, trimmed)
	}
	return trimmed, nil
}

// userHome returns the home directory baked into the image for the user.
func userHome(user string) string {
	if user == "root" {
		return "/root"
	}
	return "/home/" + user
}

// readRequiredFile reads a file that must exist and contain more than
// whitespace. The raw content is returned unmodified.
func readRequiredFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", issue.NewErrorContext().
			WithOperation("read required input file").
			WithResource(path).
			WithSuggestion("Check the assets directory layout").
			Wrap(fmt.Errorf("%w: %v", ErrInputFile, err)).
			BuildError()
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", issue.NewErrorContext().
			WithOperation("read required input file").
			WithResource(path).
			WithSuggestion("The file must contain at least one entry").
			Wrap(fmt.Errorf("%w: file is empty", ErrInputFile)).
			BuildError()
	}
	return string(data), nil
}

// resolveCustomFile validates a user-supplied override file (entrypoint or
// environment script): it must exist, be a regular file, and be non-empty.
// The returned path is absolute.
func resolveCustomFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return "", issue.NewErrorContext().
			WithOperation("resolve custom file").
			WithResource(abs).
			WithSuggestion("The file must exist and be non-empty").
			Wrap(fmt.Errorf("not a non-empty regular file")).
			BuildError()
	}
	return abs, nil
}
