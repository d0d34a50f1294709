package loader

import (
	"errors"
	"fmt"
)

// ErrFileNotFound indicates the settings file does not exist.
var ErrFileNotFound = errors.New("settings file not found")

// ParseError represents an error while parsing a settings file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValueError reports a setting whose value cannot be applied.
type ValueError struct {
	// Source is "file" or "env".
	Source string
	// Key is the TOML key or environment variable.
	Key string
	Err error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("invalid %s setting %s: %v", e.Source, e.Key, e.Err)
}

func (e *ValueError) Unwrap() error {
	return e.Err
}
