// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"rosimg-cli/internal/app/build"
	"rosimg-cli/internal/catalog"
	"rosimg-cli/internal/imageref"
	"rosimg-cli/internal/issue"
)

// buildIssueID maps a build failure to its issue catalog entry. It returns 0
// when no catalog card applies; the plain error message then stands alone.
func buildIssueID(err error) issue.Id {
	switch {
	case errors.Is(err, imageref.ErrInvalidReference):
		return issue.InvalidImageRefId
	case errors.Is(err, catalog.ErrDistroNotFound):
		return issue.DistroNotFoundId
	case errors.Is(err, build.ErrInputFile):
		return issue.InputFileMissingId
	default:
		return 0
	}
}

// renderIssue writes the catalog card for id to stderr. A zero id or a
// rendering failure is silently skipped; the underlying error is still
// reported through the normal error path.
func renderIssue(id issue.Id) {
	if id == 0 {
		return
	}
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, err := entry.Render("auto")
	if err != nil {
		return
	}
	fmt.Fprintln(os.Stderr, rendered)
}
