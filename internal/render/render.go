// SPDX-License-Identifier: MPL-2.0

// Package render expands template files against a typed key/value context.
//
// Rendering is pure: the same template source and context always produce the
// same text. A template that references an undefined context variable fails
// instead of silently substituting an empty string, so manifest/context
// mismatches surface at build time rather than as subtly broken output
// files. Only the named template file is parsed; there are no implicit
// includes, so rendering never touches the filesystem beyond the template
// itself.
package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// ErrRenderFailed is the sentinel error wrapped by RenderError.
var ErrRenderFailed = errors.New("template rendering failed")

// RenderError is returned when a template cannot be parsed or executed.
type RenderError struct {
	// Template is the template name or file path.
	Template string
	// Cause is the underlying parse or execution error.
	Cause error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("render template %q: %v", e.Template, e.Cause)
}

// Unwrap returns ErrRenderFailed so callers can use errors.Is.
// The Cause is reachable through errors.As on RenderError itself.
func (e *RenderError) Unwrap() error { return ErrRenderFailed }

// Text renders template source held in memory against the given context.
func Text(name, src string, context map[string]any) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", &RenderError{Template: name, Cause: err}
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, context); err != nil {
		return "", &RenderError{Template: name, Cause: err}
	}
	return out.String(), nil
}

// File renders the template file at path against the given context. The
// rendered text is returned in memory; callers decide where to write it, so
// a failed render never leaves a partially substituted file on disk.
func File(path string, context map[string]any) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", &RenderError{Template: path, Cause: err}
	}
	return Text(filepath.Base(path), string(src), context)
}
