package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceNotFound means the source path does not resolve to a file.
	ErrSourceNotFound = errors.New("data file not found")

	// ErrSourceParse means the file exists but is not a readable workbook.
	ErrSourceParse = errors.New("failed to parse spreadsheet")
)

// SourceError is a fatal, batch-level failure reading the source file.
type SourceError struct {
	Path string
	Kind error // ErrSourceNotFound or ErrSourceParse
	Err  error
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *SourceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewNotFoundError reports a missing source file.
func NewNotFoundError(path string, err error) *SourceError {
	return &SourceError{Path: path, Kind: ErrSourceNotFound, Err: err}
}

// NewParseError reports an undecodable source file.
func NewParseError(path string, err error) *SourceError {
	return &SourceError{Path: path, Kind: ErrSourceParse, Err: err}
}
