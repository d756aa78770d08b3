// SPDX-License-Identifier: MPL-2.0

// Package manifest declares what a build context contains.
//
// A Manifest is an ordered set of entries keyed by unique destination name.
// Each entry is one of three actions: copy an existing file or directory,
// render a template, or create an empty file or directory. Iteration order
// is lexicographic by destination name, not insertion order, so two runs
// with the same inputs stage byte-identical directory listings.
package manifest

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"rosimg-cli/internal/platform"
)

var (
	// ErrInvalidEntry is the sentinel error wrapped by InvalidEntryError.
	ErrInvalidEntry = errors.New("invalid manifest entry")

	// ErrDuplicateDestination is the sentinel error wrapped by DuplicateDestinationError.
	ErrDuplicateDestination = errors.New("duplicate manifest destination")
)

type (
	// Entry is one provisioning action in a Manifest. The three concrete
	// types (CopyEntry, RenderEntry, CreateEmptyEntry) each carry only the
	// fields their action needs.
	Entry interface {
		// Destination returns the entry's name relative to the context root.
		Destination() string
		// IsExecutable reports whether the staged object gets the executable
		// permission class instead of the data-file class.
		IsExecutable() bool
		// Validate returns an error if the entry's fields are malformed.
		// Source existence is checked later, by the stager.
		Validate() error
	}

	// CopyEntry duplicates an existing file or directory byte-for-byte.
	CopyEntry struct {
		Dest       string
		Source     string
		Executable bool
	}

	// RenderEntry expands a template file against Context and writes the
	// result to the destination.
	RenderEntry struct {
		Dest       string
		Source     string
		Context    map[string]any
		Executable bool
	}

	// CreateEmptyEntry creates an empty file, or an empty directory when
	// Dir is set.
	CreateEmptyEntry struct {
		Dest       string
		Dir        bool
		Executable bool
	}

	// InvalidEntryError is returned when an entry's fields are malformed.
	InvalidEntryError struct {
		Dest      string
		FieldErrs []error
	}

	// DuplicateDestinationError is returned when two entries share a
	// destination name.
	DuplicateDestinationError struct {
		Dest string
	}

	// Manifest is an ordered set of entries keyed by destination name.
	Manifest struct {
		entries map[string]Entry
	}
)

// Error implements the error interface.
func (e *InvalidEntryError) Error() string {
	return fmt.Sprintf("invalid manifest entry %q: %d field error(s)", e.Dest, len(e.FieldErrs))
}

// Unwrap returns ErrInvalidEntry so callers can use errors.Is.
func (e *InvalidEntryError) Unwrap() error { return ErrInvalidEntry }

// Error implements the error interface.
func (e *DuplicateDestinationError) Error() string {
	return fmt.Sprintf("duplicate manifest destination %q", e.Dest)
}

// Unwrap returns ErrDuplicateDestination so callers can use errors.Is.
func (e *DuplicateDestinationError) Unwrap() error { return ErrDuplicateDestination }

// validateDest checks the constraints shared by every entry kind: the
// destination must be a non-empty relative path that stays inside the
// context root and is stageable on every supported platform.
func validateDest(dest string) []error {
	var errs []error
	switch {
	case strings.TrimSpace(dest) == "":
		errs = append(errs, fmt.Errorf("destination must be non-empty"))
	case filepath.IsAbs(dest):
		errs = append(errs, fmt.Errorf("destination %q must be relative", dest))
	case dest != filepath.Clean(dest) || dest == ".." ||
		strings.HasPrefix(dest, ".."+string(filepath.Separator)):
		errs = append(errs, fmt.Errorf("destination %q escapes the context root", dest))
	default:
		for _, segment := range strings.Split(filepath.ToSlash(dest), "/") {
			if platform.IsWindowsReservedName(segment) {
				errs = append(errs, fmt.Errorf("destination %q contains Windows reserved name %q", dest, segment))
			}
		}
	}
	return errs
}

// Destination returns the entry's name relative to the context root.
func (e CopyEntry) Destination() string { return e.Dest }

// IsExecutable reports whether the staged copy gets the executable mode class.
func (e CopyEntry) IsExecutable() bool { return e.Executable }

// Validate returns an error if the entry's fields are malformed.
func (e CopyEntry) Validate() error {
	errs := validateDest(e.Dest)
	if strings.TrimSpace(e.Source) == "" {
		errs = append(errs, fmt.Errorf("copy source must be non-empty"))
	}
	if len(errs) > 0 {
		return &InvalidEntryError{Dest: e.Dest, FieldErrs: errs}
	}
	return nil
}

// Destination returns the entry's name relative to the context root.
func (e RenderEntry) Destination() string { return e.Dest }

// IsExecutable reports whether the rendered file gets the executable mode class.
func (e RenderEntry) IsExecutable() bool { return e.Executable }

// Validate returns an error if the entry's fields are malformed. A render
// entry must always carry a template context; a nil context is the classic
// symptom of a caller forgetting to wire one up, and failing here is cheaper
// than failing inside the template engine.
func (e RenderEntry) Validate() error {
	errs := validateDest(e.Dest)
	if strings.TrimSpace(e.Source) == "" {
		errs = append(errs, fmt.Errorf("template source must be non-empty"))
	}
	if e.Context == nil {
		errs = append(errs, fmt.Errorf("template context must not be nil"))
	}
	if len(errs) > 0 {
		return &InvalidEntryError{Dest: e.Dest, FieldErrs: errs}
	}
	return nil
}

// Destination returns the entry's name relative to the context root.
func (e CreateEmptyEntry) Destination() string { return e.Dest }

// IsExecutable reports whether the created object gets the executable mode class.
func (e CreateEmptyEntry) IsExecutable() bool { return e.Executable }

// Validate returns an error if the entry's fields are malformed.
func (e CreateEmptyEntry) Validate() error {
	if errs := validateDest(e.Dest); len(errs) > 0 {
		return &InvalidEntryError{Dest: e.Dest, FieldErrs: errs}
	}
	return nil
}

// New creates an empty Manifest.
func New() *Manifest {
	return &Manifest{entries: make(map[string]Entry)}
}

// Add validates the entry and inserts it. Destination names are unique;
// adding a second entry with the same destination fails.
func (m *Manifest) Add(e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, exists := m.entries[e.Destination()]; exists {
		return &DuplicateDestinationError{Dest: e.Destination()}
	}
	m.entries[e.Destination()] = e
	return nil
}

// Len returns the number of entries.
func (m *Manifest) Len() int { return len(m.entries) }

// Entries returns the entries sorted lexicographically by destination name.
func (m *Manifest) Entries() []Entry {
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, m.entries[name])
	}
	return entries
}
