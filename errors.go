package bids2nda

import (
	"fmt"
	"strings"
)

// SchemaError reports that a user-supplied table lacks one or more required
// columns.
type SchemaError struct {
	File    string
	Missing []string
	Detail  string
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("%s is missing required column(s) '%s'", e.File, strings.Join(e.Missing, "', '"))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// ParseError reports an existing file that could not be parsed.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingFileError reports a file that must exist but does not.
type MissingFileError struct {
	File   string
	Detail string
}

func (e *MissingFileError) Error() string {
	msg := fmt.Sprintf("%s file not found", e.File)
	if e.Detail != "" {
		msg += " - " + e.Detail
	}
	return msg
}

// NotFoundError reports that no row of File matched Key.
type NotFoundError struct {
	File string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no row where %s in %s", e.Key, e.File)
}
