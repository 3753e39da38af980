package bids2nda

import (
	"io"
	"sort"

	"github.com/csimplestring/go-csv/detector"
)

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the reader, assuming a CSV-like file. Tab is assumed when nothing
// can be detected, since that is what BIDS tables use.
//
// The detector may report several equally likely candidates in no particular
// order (a header-only file often qualifies both '\t' and '_'). Tab, then
// comma, win such ties; otherwise the lowest candidate is taken.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	candidates := make([]rune, 0, len(delimiters))
	for _, v := range delimiters {
		if v == "" {
			continue
		}
		candidates = append(candidates, []rune(v)[0])
	}
	if len(candidates) == 0 {
		return '\t'
	}

	for _, preferred := range []rune{'\t', ','} {
		for _, c := range candidates {
			if c == preferred {
				return c
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	return candidates[0]
}
