// SPDX-License-Identifier: MPL-2.0

package buildlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// maxLineSize bounds a single engine output line. BuildKit progress lines
// can get long but stay far below this.
const maxLineSize = 1024 * 1024

// Multiplexer consumes a build's combined output stream line-by-line on a
// single reader and duplicates each line to the console and to the complete
// log file. Both writes finish before the next line is read, so console
// order always matches log-file order. It is the complete log's only
// writer.
type Multiplexer struct {
	console io.Writer
	file    *os.File
}

// NewMultiplexer creates the complete log file (empty) and returns a
// multiplexer that tees into it and the console writer.
func NewMultiplexer(console io.Writer, completeLogPath string) (*Multiplexer, error) {
	f, err := os.OpenFile(completeLogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create complete log: %w", err)
	}
	return &Multiplexer{console: console, file: f}, nil
}

// Consume reads r until EOF. Each line is written to the console first
// (unbuffered, for real-time feedback) and then appended to the complete
// log, before the next line is read.
func (m *Multiplexer) Consume(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		// Copy out of the scanner's internal buffer before writing.
		raw := scanner.Bytes()
		line := make([]byte, len(raw)+1)
		copy(line, raw)
		line[len(raw)] = '\n'
		if _, err := m.console.Write(line); err != nil {
			return fmt.Errorf("write console line: %w", err)
		}
		if _, err := m.file.Write(line); err != nil {
			return fmt.Errorf("append complete log line: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read build output: %w", err)
	}
	return nil
}

// Close flushes the complete log to disk and closes it.
func (m *Multiplexer) Close() error {
	if m.file == nil {
		return nil
	}
	syncErr := m.file.Sync()
	closeErr := m.file.Close()
	m.file = nil
	if syncErr != nil {
		return fmt.Errorf("sync complete log: %w", syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close complete log: %w", closeErr)
	}
	return nil
}
