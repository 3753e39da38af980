// Package experimentid assigns NDA Experiment IDs to image files by matching
// their names against user supplied regular expressions.
//
// NDA requires fMRI tasks to carry an Experiment ID. The simplest route is an
// "ExperimentID" key in the _bold.json sidecar, but it is often preferable to
// leave the dataset untouched and supply a lookup table at upload time
// instead. One ID may have many patterns.
package experimentid

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"

	"cloud.google.com/go/storage"
	"github.com/WillForan/bids2nda"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

const (
	IDColumn      = "ExperimentID"
	PatternColumn = "Pattern"
)

type Entry struct {
	ExperimentID string
	Pattern      *regexp.Regexp
}

// Lookup is an ordered pattern table. The first matching entry wins. A nil
// Lookup is valid and never matches.
type Lookup []Entry

type record struct {
	ExperimentID string `csv:"ExperimentID"`
	Pattern      string `csv:"Pattern"`
}

// Read loads a tab-separated lookup with the columns ExperimentID and Pattern.
// client may be nil unless path is a gs:// URL.
func Read(path string, client *storage.Client) (Lookup, error) {
	f, _, err := bids2nda.MaybeOpenSeekerFromGoogleStorage(path, client)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f, path)
}

// Parse reads a lookup table from r. name is only used in error messages.
func Parse(r io.Reader, name string) (Lookup, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, pfx.Err(err)
	}
	b = bytes.TrimPrefix(b, []byte("\ufeff"))

	header, err := tsvReader(bytes.NewReader(b)).Read()
	if err != nil {
		return nil, &bids2nda.ParseError{File: name, Err: err}
	}
	table := bids2nda.NewTable(name, header...)
	if err := table.Require(IDColumn, PatternColumn); err != nil {
		return nil, err
	}

	// Decoding into string fields keeps numeric-looking IDs such as "0123"
	// exactly as written.
	records := []*record{}
	if err := gocsv.UnmarshalCSV(tsvReader(bytes.NewReader(b)), &records); err != nil {
		return nil, &bids2nda.ParseError{File: name, Err: err}
	}

	out := make(Lookup, 0, len(records))
	for i, rec := range records {
		re, err := regexp.Compile(rec.Pattern)
		if err != nil {
			return nil, &bids2nda.ParseError{File: name, Err: fmt.Errorf("row %d: %w", i+1, err)}
		}
		out = append(out, Entry{ExperimentID: rec.ExperimentID, Pattern: re})
	}

	return out, nil
}

// Find returns the ID of the first entry whose pattern matches anywhere in
// filename, or "" if nothing matches.
func (l Lookup) Find(filename string) string {
	for _, entry := range l {
		if entry.Pattern.MatchString(filename) {
			return entry.ExperimentID
		}
	}
	return ""
}

func tsvReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	return cr
}
