package bids2nda

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"gopkg.in/guregu/null.v3"
)

const (
	ParticipantIDColumn = "participant_id"
	SessionIDColumn     = "session_id"
)

// Cells holding one of these tokens are read as missing. This is the set of
// spellings pandas treats as NA by default, which covers the BIDS "n/a" and
// what spreadsheet tools tend to emit.
var missingTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// utf8BOM is prepended by some spreadsheet exports.
const utf8BOM = "\ufeff"

// Table is a small in-memory, column-named table of nullable strings. It is
// what every BIDS .tsv sidecar table (participants, sessions, scans) and the
// auxiliary session mapping are read into.
type Table struct {
	// Source describes where the table came from and is used in messages.
	Source  string
	Columns []string
	Rows    [][]null.String
}

// NewTable returns an empty table with the given columns.
func NewTable(source string, columns ...string) *Table {
	return &Table{
		Source:  source,
		Columns: append([]string{}, columns...),
		Rows:    make([][]null.String, 0),
	}
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Get returns the cell at row for the named column. An unknown column yields
// an invalid (null) value.
func (t *Table) Get(row int, column string) null.String {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return null.String{}
	}
	return t.Rows[row][idx]
}

// AddColumn appends a column filled with nulls and returns its index. If the
// column already exists, its index is returned unchanged.
func (t *Table) AddColumn(name string) int {
	if idx := t.ColumnIndex(name); idx >= 0 {
		return idx
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], null.String{})
	}
	return len(t.Columns) - 1
}

// Fill sets every row of the named column to value, adding the column if
// needed.
func (t *Table) Fill(column string, value null.String) {
	idx := t.AddColumn(column)
	for i := range t.Rows {
		t.Rows[i][idx] = value
	}
}

// AppendRow adds a row given as column name => value. Columns not present in
// the table are ignored.
func (t *Table) AppendRow(values map[string]null.String) {
	row := make([]null.String, len(t.Columns))
	for i, c := range t.Columns {
		row[i] = values[c]
	}
	t.Rows = append(t.Rows, row)
}

// Missing returns the subset of columns that the table does not have.
func (t *Table) Missing(columns ...string) []string {
	var missing []string
	for _, c := range columns {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Require returns a *SchemaError if any of the columns is absent.
func (t *Table) Require(columns ...string) error {
	if missing := t.Missing(columns...); len(missing) > 0 {
		return &SchemaError{File: t.Source, Missing: missing}
	}
	return nil
}

// Select returns the indices of rows whose participant_id equals
// participantID. If sessionID is non-empty, session_id must match as well; a
// table without a session_id column then matches nothing.
func (t *Table) Select(participantID, sessionID string) []int {
	out := make([]int, 0)
	pidx := t.ColumnIndex(ParticipantIDColumn)
	if pidx < 0 {
		return out
	}
	sidx := t.ColumnIndex(SessionIDColumn)
	if sessionID != "" && sidx < 0 {
		return out
	}

	for i, row := range t.Rows {
		if row[pidx].String != participantID || !row[pidx].Valid {
			continue
		}
		if sessionID != "" && (row[sidx].String != sessionID || !row[sidx].Valid) {
			continue
		}
		out = append(out, i)
	}

	return out
}

// Concat stacks tables vertically. The result has the union of all columns in
// order of first appearance; cells absent from a source table are null.
func Concat(source string, tables ...*Table) *Table {
	out := NewTable(source)
	for _, t := range tables {
		for _, c := range t.Columns {
			out.AddColumn(c)
		}
	}

	for _, t := range tables {
		for r := range t.Rows {
			values := make(map[string]null.String, len(t.Columns))
			for i, c := range t.Columns {
				values[c] = t.Rows[r][i]
			}
			out.AppendRow(values)
		}
	}

	return out
}

// ReadTable reads a tab-delimited table with a header row. The path may be
// local or, when client is non-nil, a gs:// object, and may be compressed.
func ReadTable(path string, client *storage.Client) (*Table, error) {
	b, err := readAllMaybeCompressed(path, client)
	if err != nil {
		return nil, err
	}

	return ParseTable(bytes.NewReader(b), path, '\t')
}

// ReadTableDetectDelimiter is like ReadTable but guesses the delimiter from the
// file contents, so that hand-made comma- or tab-separated files both work.
func ReadTableDetectDelimiter(path string, client *storage.Client) (*Table, error) {
	b, err := readAllMaybeCompressed(path, client)
	if err != nil {
		return nil, err
	}

	comma := DetermineDelimiter(bytes.NewReader(b))

	return ParseTable(bytes.NewReader(b), path, comma)
}

// ParseTable reads a delimited table whose first row is the header. Short
// rows are padded with nulls.
func ParseTable(r io.Reader, source string, comma rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	entries, err := cr.ReadAll()
	if err != nil {
		return nil, &ParseError{File: source, Err: err}
	}
	if len(entries) == 0 {
		return nil, &ParseError{File: source, Err: fmt.Errorf("no header row")}
	}

	header := make([]string, len(entries[0]))
	for i, v := range entries[0] {
		header[i] = strings.TrimSpace(v)
	}
	header[0] = strings.TrimSpace(strings.TrimPrefix(header[0], utf8BOM))

	t := NewTable(source, header...)
	for _, entry := range entries[1:] {
		if len(entry) == 1 && strings.TrimSpace(entry[0]) == "" {
			continue
		}

		row := make([]null.String, len(header))
		for i := range header {
			if i >= len(entry) {
				continue
			}
			row[i] = cell(entry[i])
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

func cell(v string) null.String {
	if _, missing := missingTokens[v]; missing {
		return null.String{}
	}
	return null.StringFrom(v)
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	stat, err := os.Stat(path)
	return err == nil && !stat.IsDir()
}

func readAllMaybeCompressed(path string, client *storage.Client) ([]byte, error) {
	f, _, err := MaybeOpenSeekerFromGoogleStorage(path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	rc, err := MaybeDecompressReadCloser(f)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return b, nil
}
