// Package codebase loads the pre-captured codebase snapshot that grounds a session.
package codebase

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultPath is where the snapshot is expected when no path is configured
const DefaultPath = "codebase_context.txt"

// Placeholder stands in for the snapshot when an interactive session starts without one
const Placeholder = "No codebase_context.txt found. Ask general questions or run the 'find' command first."

// ErrMissingInput is returned when a snapshot is required but does not exist
var ErrMissingInput = errors.New("missing input")

// Mode decides how a missing snapshot is handled
type Mode int

const (
	// ModeSingleShot requires the snapshot to exist
	ModeSingleShot Mode = iota
	// ModeInteractive falls back to Placeholder
	ModeInteractive
)

// Context is the immutable snapshot text for one process
type Context struct {
	text        string
	path        string
	placeholder bool
}

// Load reads the whole file at path. No size limit is applied.
func Load(path string, mode Mode) (Context, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if mode == ModeInteractive {
			return Context{text: Placeholder, path: path, placeholder: true}, nil
		}
		return Context{}, fmt.Errorf("%w: %s not found, generate it before running an analysis", ErrMissingInput, path)
	} else if err != nil {
		return Context{}, fmt.Errorf("failed to read codebase context: %w", err)
	}
	return Context{text: string(b), path: path}, nil
}

// FromText wraps text that was obtained some other way
func FromText(text string) Context {
	return Context{text: text}
}

func (c Context) Text() string { return c.text }

func (c Context) Path() string { return c.path }

// IsPlaceholder reports whether the snapshot was missing and Placeholder is used instead
func (c Context) IsPlaceholder() bool { return c.placeholder }

// Size is the length of the text in bytes
func (c Context) Size() int { return len(c.text) }

// LineCount counts lines the way a reader would: a trailing line terminator does not start another line, and empty
// text has no lines. \n, \r\n and lone \r all terminate a line.
func (c Context) LineCount() int {
	if c.text == "" {
		return 0
	}
	normalized := strings.ReplaceAll(c.text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	n := strings.Count(normalized, "\n")
	if !strings.HasSuffix(normalized, "\n") {
		n++
	}
	return n
}
