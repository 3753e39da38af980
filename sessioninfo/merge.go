package sessioninfo

import (
	"fmt"
	"log"
	"strings"

	"github.com/WillForan/bids2nda"
	"gopkg.in/guregu/null.v3"
)

// OuterMerge joins a new, more authoritative table onto the table built so
// far. Rows are matched on participant_id, and also on session_id when both
// tables have it. Every row from either side survives. For any other column
// the two tables share, the authoritative value keeps the column name and the
// previous value is kept under "<column>_<authDesc>".
func OuterMerge(auth, prev *bids2nda.Table, authDesc, prevDesc string) (*bids2nda.Table, error) {
	log.Printf("Using %d %s rows (%v)\n", auth.Len(), authDesc, auth.Columns)

	// Do we have what we need to merge?
	for _, side := range []struct {
		t    *bids2nda.Table
		desc string
	}{{auth, authDesc}, {prev, prevDesc}} {
		if !side.t.HasColumn(bids2nda.ParticipantIDColumn) {
			return nil, &bids2nda.SchemaError{
				File:    side.t.Source,
				Missing: []string{bids2nda.ParticipantIDColumn},
				Detail:  fmt.Sprintf("cannot merge %s with %s", authDesc, prevDesc),
			}
		}
	}

	keys := []string{bids2nda.ParticipantIDColumn}
	if auth.HasColumn(bids2nda.SessionIDColumn) && prev.HasColumn(bids2nda.SessionIDColumn) {
		keys = append(keys, bids2nda.SessionIDColumn)
	}
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	// Are we overwriting data?
	overlap := make([]string, 0)
	for _, c := range auth.Columns {
		if !isKey[c] && prev.HasColumn(c) {
			overlap = append(overlap, c)
		}
	}
	if len(overlap) > 0 {
		log.Printf("WARNING: %s and %s share overlapping columns %v. Will keep only values from %s.\n", authDesc, prevDesc, overlap, authDesc)
	}

	sidelined := "_" + strings.ReplaceAll(authDesc, " ", "_")

	out := bids2nda.NewTable(fmt.Sprintf("%s + %s", authDesc, prevDesc), auth.Columns...)
	prevNames := make(map[string]string) // prev column => merged column
	for _, c := range prev.Columns {
		switch {
		case isKey[c]:
			prevNames[c] = c
		case auth.HasColumn(c):
			prevNames[c] = c + sidelined
			out.AddColumn(c + sidelined)
		default:
			prevNames[c] = c
			out.AddColumn(c)
		}
	}

	prevIndex := make(map[string][]int)
	for i := range prev.Rows {
		k := joinKey(prev, i, keys)
		prevIndex[k] = append(prevIndex[k], i)
	}
	matchedPrev := make([]bool, prev.Len())

	for a := range auth.Rows {
		matches := prevIndex[joinKey(auth, a, keys)]
		if len(matches) == 0 {
			out.AppendRow(rowValues(auth, a, nil))
			continue
		}

		for _, p := range matches {
			matchedPrev[p] = true
			values := rowValues(prev, p, prevNames)
			for c, v := range rowValues(auth, a, nil) {
				values[c] = v
			}
			out.AppendRow(values)
		}
	}

	for p := range prev.Rows {
		if matchedPrev[p] {
			continue
		}
		out.AppendRow(rowValues(prev, p, prevNames))
	}

	return out, nil
}

// rowValues returns row i of t keyed by column name, optionally renamed.
func rowValues(t *bids2nda.Table, i int, rename map[string]string) map[string]null.String {
	out := make(map[string]null.String, len(t.Columns))
	for j, c := range t.Columns {
		if rename != nil {
			c = rename[c]
		}
		out[c] = t.Rows[i][j]
	}
	return out
}

func joinKey(t *bids2nda.Table, row int, keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		v := t.Get(row, k)
		if !v.Valid {
			parts[i] = "\x01"
			continue
		}
		parts[i] = v.String
	}
	return strings.Join(parts, "\x00")
}
