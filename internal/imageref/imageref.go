// SPDX-License-Identifier: MPL-2.0

// Package imageref validates and normalizes container image references.
//
// A reference has the shape [HOST[:PORT]/]PATH[:TAG], where PATH is one or
// more lower-case components separated by '/'. Inside a component, single
// dots, one or two underscores, or runs of dashes may join alphanumeric
// segments. The optional TAG allows letters, digits, '_', '.' and '-'.
package imageref

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidReference is the sentinel error wrapped by InvalidReferenceError.
var ErrInvalidReference = errors.New("invalid image reference")

// referencePattern is the full reference grammar. A path component must start
// and end with an alphanumeric character; separators are only allowed between
// alphanumerics, so "repo//x" and components with leading dots are rejected.
var referencePattern = regexp.MustCompile(
	`^([a-z0-9.-]+(:[0-9]+)?/)?` + // optional host[:port]/ prefix
		`[a-z0-9]+(?:(?:\.|_{1,2}|-+)[a-z0-9]+)*` + // first path component
		`(/[a-z0-9]+(?:(?:\.|_{1,2}|-+)[a-z0-9]+)*)*` + // further components
		`(:[a-zA-Z0-9_.-]+)?$`, // optional :tag suffix
)

type (
	// Reference is a container image reference such as "ubuntu:22.04" or
	// "registry.example.com:5000/team/app:v1". The zero value is invalid.
	Reference string

	// InvalidReferenceError is returned when a Reference does not match the
	// accepted grammar.
	InvalidReferenceError struct {
		Value Reference
	}
)

// Error implements the error interface.
func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid image reference %q", e.Value)
}

// Unwrap returns ErrInvalidReference so callers can use errors.Is.
func (e *InvalidReferenceError) Unwrap() error { return ErrInvalidReference }

// String returns the string representation of the Reference.
func (r Reference) String() string { return string(r) }

// Validate returns an error unless the reference matches the accepted
// grammar. Validation happens before any filesystem or process work, so a
// bad reference never produces a context directory or a child process.
func (r Reference) Validate() error {
	if !referencePattern.MatchString(string(r)) {
		return &InvalidReferenceError{Value: r}
	}
	return nil
}

// Sanitize returns the reference with ':' and '/' replaced by '_', suitable
// for embedding in log file names.
func (r Reference) Sanitize() string {
	s := strings.ReplaceAll(string(r), ":", "_")
	return strings.ReplaceAll(s, "/", "_")
}
