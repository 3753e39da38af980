// Package sessioninfo reads participant and session information (age, sex
// and acquisition time) from BIDS tables and auxiliary lookups.
package sessioninfo

import (
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/WillForan/bids2nda"
	"github.com/carbocation/pfx"
)

const (
	AgeColumn     = "age"
	SexColumn     = "sex"
	AcqTimeColumn = "acq_time"
)

var subjectPattern = regexp.MustCompile(`sub-[^_/-]*`)

// SubFromFile extracts the first "sub-<label>" from a path, e.g. "sub-12ab"
// from "bids/sub-12ab/ses-xyz". It returns "" if there is none.
func SubFromFile(path string) string {
	return subjectPattern.FindString(filepath.ToSlash(path))
}

type source struct {
	table *bids2nda.Table
	desc  string
	name  string
}

// ReadParticipantInfo builds the table used to look up age, sex and
// acquisition time. Sources are merged with successive outer merges, from
// least to most authoritative:
//
//  1. participants.tsv at the root of the dataset
//  2. sub-*/*_sessions.tsv
//  3. aux, the auxiliary session mapping, if non-nil
//
// A scans.tsv acq_time still trumps any value found here.
func ReadParticipantInfo(root string, aux *bids2nda.Table) (*bids2nda.Table, error) {
	participantsFile := filepath.Join(root, "participants.tsv")

	var participants *bids2nda.Table
	if bids2nda.FileExists(participantsFile) {
		var err error
		participants, err = bids2nda.ReadTable(participantsFile, nil)
		if err != nil {
			return nil, err
		}
	} else {
		log.Printf("WARNING: %s does not exist.\n", participantsFile)
		participants = bids2nda.NewTable(participantsFile, bids2nda.ParticipantIDColumn)
	}

	sources := make([]source, 0, 2)

	sessions, err := ReadSessions(root)
	if err != nil {
		return nil, err
	}
	if sessions != nil {
		sources = append(sources, source{sessions, "session files", "sessions.tsv"})
	}

	if aux != nil {
		sources = append(sources, source{aux, "auxiliary tsv", "auxiliary tsv"})
	}

	merged := participants
	descs := []string{"participants.tsv"}
	for _, src := range sources {
		merged, err = OuterMerge(src.table, merged, src.desc, strings.Join(descs, " "))
		if err != nil {
			return nil, err
		}
		descs = append(descs, src.name)
	}

	if missing := merged.Missing(AgeColumn, SexColumn); len(missing) > 0 {
		return nil, &bids2nda.SchemaError{
			File:    participantsFile,
			Missing: missing,
			Detail: fmt.Sprintf("neither %s, sub-*/*_sessions.tsv, nor the auxiliary lookup provide columns 'age' and 'sex' for nda columns 'interview_age' and 'sex' (have: %v)",
				participantsFile, merged.Columns),
		}
	}

	return merged, nil
}

// ReadSessions concatenates every sub-*/*_sessions.tsv under root, adding the
// participant_id taken from each file's directory. It returns nil if there
// are no session files.
func ReadSessions(root string) (*bids2nda.Table, error) {
	files, err := filepath.Glob(filepath.Join(root, "sub-*", "*_sessions.tsv"))
	if err != nil {
		return nil, pfx.Err(err)
	}
	if len(files) == 0 {
		return nil, nil
	}

	tables := make([]*bids2nda.Table, 0, len(files))
	for _, f := range files {
		t, err := bids2nda.ReadTable(f, nil)
		if err != nil {
			return nil, err
		}
		t.Fill(bids2nda.ParticipantIDColumn, nullString(SubFromFile(filepath.Base(filepath.Dir(f)))))
		tables = append(tables, t)
	}

	return bids2nda.Concat(filepath.Join(root, "sub-*", "*_sessions.tsv"), tables...), nil
}

// ReadSessionMapping reads an auxiliary table that supplements or replaces
// sessions.tsv and participants.tsv. Tab- and comma-separated files are both
// accepted.
func ReadSessionMapping(path string, client *storage.Client) (*bids2nda.Table, error) {
	t, err := bids2nda.ReadTableDetectDelimiter(path, client)
	if err != nil {
		return nil, err
	}

	if err := t.Require(bids2nda.ParticipantIDColumn); err != nil {
		return nil, err
	}

	return t, nil
}
