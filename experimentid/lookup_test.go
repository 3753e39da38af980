package experimentid

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/WillForan/bids2nda"
)

func TestParseBadColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("BadCol\tPattern\n123\ttask-rest\n"), "bad.tsv")
	var schemaErr *bids2nda.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Expected a SchemaError, got %v", err)
	}
	if len(schemaErr.Missing) != 1 || schemaErr.Missing[0] != IDColumn {
		t.Errorf("Expected missing %s, got %v", IDColumn, schemaErr.Missing)
	}
}

func TestParseAndFind(t *testing.T) {
	lookup, err := Parse(strings.NewReader("ExperimentID\tPattern\n123\ttask-rest\n"), "ok.tsv")
	if err != nil {
		t.Fatal(err)
	}

	if got := lookup.Find("sub-X_task-rest_bold.nii.gz"); got != "123" {
		t.Errorf("Expected 123, got %q", got)
	}
	if got := lookup.Find("sub-X/sub-X_task-rest_bold.nii.gz"); got != "123" {
		t.Errorf("Expected 123, got %q", got)
	}
	if got := lookup.Find("sub-X_task-notrest_bold.nii.gz"); got != "" {
		t.Errorf("Expected no match, got %q", got)
	}
}

func TestFirstPatternWins(t *testing.T) {
	src := "ExperimentID\tPattern\n" +
		"1\trest\n" +
		"2\ttask-rest\n" +
		"1\tmovie\n"
	lookup, err := Parse(strings.NewReader(src), "order.tsv")
	if err != nil {
		t.Fatal(err)
	}

	if got := lookup.Find("sub-1_task-rest_bold.nii.gz"); got != "1" {
		t.Errorf("Expected first entry to win, got %q", got)
	}
	if got := lookup.Find("sub-1_task-movie_bold.nii.gz"); got != "1" {
		t.Errorf("Expected repeated ID to match, got %q", got)
	}
}

func TestIDsStayStrings(t *testing.T) {
	lookup, err := Parse(strings.NewReader("ExperimentID\tPattern\n0123\tbold\n"), "zeros.tsv")
	if err != nil {
		t.Fatal(err)
	}
	if got := lookup.Find("x_bold.nii.gz"); got != "0123" {
		t.Errorf("Expected leading zero to survive, got %q", got)
	}
}

func TestNilLookup(t *testing.T) {
	var lookup Lookup
	if got := lookup.Find("sub-1_task-rest_bold.nii.gz"); got != "" {
		t.Errorf("Expected empty result, got %q", got)
	}
}

func TestBadPattern(t *testing.T) {
	_, err := Parse(strings.NewReader("ExperimentID\tPattern\n1\ttask-(\n"), "re.tsv")
	var parseErr *bids2nda.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected a ParseError, got %v", err)
	}
}

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expids.tsv")
	if err := os.WriteFile(path, []byte("ExperimentID\tPattern\n42\ttask-nback\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	lookup, err := Read(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(lookup) != 1 || lookup.Find("task-nback") != "42" {
		t.Errorf("Unexpected lookup %+v", lookup)
	}
}

func TestParseByteOrderMark(t *testing.T) {
	lookup, err := Parse(strings.NewReader("\ufeffExperimentID\tPattern\n123\ttask-rest\n"), "expids.tsv")
	if err != nil {
		t.Fatal(err)
	}
	if id := lookup.Find("sub-X_task-rest_bold.nii.gz"); id != "123" {
		t.Errorf("Expected 123, got %q", id)
	}
}
