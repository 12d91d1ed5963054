package errors

import (
	"fmt"
	"strings"
)

// ValidationError reports demographic input rejected before any scoring
// computation runs.
type ValidationError struct {
	Field string
	Value string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Msg)
}

// UnsupportedModelError reports a model name outside the supported set. The
// supported names are included so callers can surface them.
type UnsupportedModelError struct {
	Name      string
	Supported []string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("unsupported model %q, supported models: %s", e.Name, strings.Join(e.Supported, ", "))
}

// TableFormatError reports a rule-table file that failed to parse. Row is
// 1-based and zero when the failure is not row-specific.
type TableFormatError struct {
	Err  error
	File string
	Row  int
}

func (e *TableFormatError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("table %s row %d: %s", e.File, e.Row, e.Err)
	}
	return fmt.Sprintf("table %s: %s", e.File, e.Err)
}

func (e *TableFormatError) Unwrap() error {
	return e.Err
}

// SourceError reports a table source (local directory, S3 bucket, URL) that
// could not deliver a file.
type SourceError struct {
	Err    error
	Source string
	Name   string
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s could not provide %s: %s", e.Source, e.Name, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
