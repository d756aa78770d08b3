// SPDX-License-Identifier: MPL-2.0

// Package stage assembles a manifest into an isolated build context.
//
// The Context owns a freshly created temporary directory for its entire
// lifetime. Staging validates each entry's source before touching the
// destination and aborts at the first invalid entry, so a failed staging
// never leaves objects for later-ordered entries behind. Close removes the
// whole tree and must be deferred around the staging+invocation sequence so
// cleanup also runs on interrupt.
package stage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"rosimg-cli/internal/manifest"
	"rosimg-cli/internal/render"
)

const (
	// ModeExecutable is the fixed mode class for scripts and other
	// executables staged into the context.
	ModeExecutable os.FileMode = 0o775

	// ModeData is the fixed mode class for non-executable data files.
	ModeData os.FileMode = 0o664

	// ModeDir is the mode for directories created while staging.
	ModeDir os.FileMode = 0o775
)

// ErrStaging is the sentinel error wrapped by StagingError.
var ErrStaging = errors.New("staging failed")

type (
	// StagingError is returned when a manifest entry cannot be staged:
	// its source is missing, of the wrong kind, or its template context
	// is malformed.
	StagingError struct {
		// Dest is the destination name of the failing entry.
		Dest string
		// Cause is the underlying error.
		Cause error
	}

	// ContextOption configures a Context.
	ContextOption func(*Context)

	// Context is an exclusively-owned temporary build context directory.
	// It is written only during Stage and read-only afterwards; the build
	// engine is the only other reader.
	Context struct {
		dir    string
		logger *log.Logger
	}
)

// Error implements the error interface.
func (e *StagingError) Error() string {
	return fmt.Sprintf("stage %q: %v", e.Dest, e.Cause)
}

// Unwrap returns ErrStaging so callers can use errors.Is; the cause is
// available via errors.As on StagingError.
func (e *StagingError) Unwrap() error { return ErrStaging }

// WithLogger sets the diagnostics logger used during staging.
func WithLogger(logger *log.Logger) ContextOption {
	return func(c *Context) {
		c.logger = logger
	}
}

// NewContext creates a fresh, empty context directory under parent
// (os.TempDir when parent is empty). The caller owns the directory and must
// arrange for Close to run on every exit path.
func NewContext(parent string, opts ...ContextOption) (*Context, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	dir, err := os.MkdirTemp(parent, "context_")
	if err != nil {
		return nil, fmt.Errorf("create context directory: %w", err)
	}

	c := &Context{dir: dir, logger: log.Default()}
	for _, opt := range opts {
		opt(c)
	}
	c.logger.Debug("created temporary context directory", "dir", dir)
	return c, nil
}

// Dir returns the absolute path of the context directory.
func (c *Context) Dir() string { return c.dir }

// Path returns the absolute path of a destination name inside the context.
func (c *Context) Path(name string) string { return filepath.Join(c.dir, name) }

// Close removes the context tree recursively. It is safe to call more than
// once and is intended to run deferred, including on interrupt.
func (c *Context) Close() error {
	if c.dir == "" {
		return nil
	}
	err := os.RemoveAll(c.dir)
	c.dir = ""
	if err != nil {
		return fmt.Errorf("remove context directory: %w", err)
	}
	return nil
}

// Stage performs every manifest action into the context directory, in the
// manifest's lexicographic destination order. For identical manifests and
// identical source contents two stagings produce byte-identical trees, mode
// bits included; the downstream engine's build cache depends on that.
func (c *Context) Stage(m *manifest.Manifest) error {
	for _, entry := range m.Entries() {
		dst := c.Path(entry.Destination())

		if err := os.MkdirAll(filepath.Dir(dst), ModeDir); err != nil {
			return &StagingError{Dest: entry.Destination(), Cause: err}
		}

		c.logger.Debug("staging entry", "dest", entry.Destination())

		var err error
		switch e := entry.(type) {
		case manifest.CopyEntry:
			err = c.stageCopy(e, dst)
		case manifest.RenderEntry:
			err = c.stageRender(e, dst)
		case manifest.CreateEmptyEntry:
			err = c.stageCreateEmpty(e, dst)
		default:
			err = fmt.Errorf("unknown entry type %T", entry)
		}
		if err != nil {
			return &StagingError{Dest: entry.Destination(), Cause: err}
		}
	}
	return nil
}

// entryMode returns the fixed permission class for an entry.
func entryMode(e manifest.Entry) os.FileMode {
	if e.IsExecutable() {
		return ModeExecutable
	}
	return ModeData
}

// stageCopy duplicates the source file or directory and forces the entry's
// permission class onto the result.
func (c *Context) stageCopy(e manifest.CopyEntry, dst string) error {
	info, err := os.Stat(e.Source)
	if err != nil {
		return fmt.Errorf("source %q does not exist: %w", e.Source, err)
	}

	if info.IsDir() {
		if err := copyDir(e.Source, dst); err != nil {
			return err
		}
		return forceTreeModes(dst, entryMode(e))
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("source %q is not a regular file", e.Source)
	}
	if err := copyFile(e.Source, dst); err != nil {
		return err
	}
	return os.Chmod(dst, entryMode(e))
}

// stageRender expands the entry's template fully in memory before creating
// the destination, so a render failure leaves nothing on disk.
func (c *Context) stageRender(e manifest.RenderEntry, dst string) error {
	info, err := os.Stat(e.Source)
	if err != nil {
		return fmt.Errorf("template %q does not exist: %w", e.Source, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("template %q is not a regular file", e.Source)
	}

	text, err := render.File(e.Source, e.Context)
	if err != nil {
		return err
	}

	if err := os.WriteFile(dst, []byte(text), entryMode(e)); err != nil {
		return err
	}
	// WriteFile's mode argument is filtered by the umask; chmod makes the
	// class exact so staged trees are reproducible.
	return os.Chmod(dst, entryMode(e))
}

// stageCreateEmpty creates an empty file or directory with the entry's
// permission class.
func (c *Context) stageCreateEmpty(e manifest.CreateEmptyEntry, dst string) error {
	if e.Dir {
		if err := os.Mkdir(dst, ModeDir); err != nil {
			return err
		}
		return os.Chmod(dst, ModeDir)
	}

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, entryMode(e))
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, entryMode(e))
}

// forceTreeModes walks a staged directory and applies the fixed mode
// classes: ModeDir for directories, fileMode for every file.
func forceTreeModes(root string, fileMode os.FileMode) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return os.Chmod(path, ModeDir)
		}
		return os.Chmod(path, fileMode)
	})
}
