// SPDX-License-Identifier: MPL-2.0

package stage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// copyFile copies a regular file from src to dst byte-for-byte. Permission
// classes are forced by the caller afterwards, so the mode used here is
// only a placeholder.
func copyFile(src, dst string) (err error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer func() { _ = srcFile.Close() }() // Read-only file; close error non-critical

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, ModeData)
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	defer func() {
		if closeErr := dstFile.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close destination file: %w", closeErr)
		}
	}()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("copy file contents: %w", err)
	}

	return nil
}

// copyDir recursively copies a directory from src to dst. Symlinks and
// other irregular entries are rejected: a build context must be fully
// self-contained, and a link pointing outside it would not be.
func copyDir(src, dst string) error {
	if err := os.MkdirAll(dst, ModeDir); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read source directory: %w", err)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		switch {
		case entry.IsDir():
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
		case entry.Type().IsRegular():
			if err := copyFile(srcPath, dstPath); err != nil {
				return err
			}
		default:
			return fmt.Errorf("source entry %q is neither a regular file nor a directory", srcPath)
		}
	}

	return nil
}
