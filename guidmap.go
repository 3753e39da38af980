package bids2nda

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
)

// GUIDMap maps BIDS subject labels (without the "sub-" prefix) to NDA GUIDs.
type GUIDMap map[string]string

// ReadGUIDMap reads the output of the NDA GUID tool, one
// "<subject label> - <GUID>" pair per line.
func ReadGUIDMap(path string, client *storage.Client) (GUIDMap, error) {
	b, err := readAllMaybeCompressed(path, client)
	if err != nil {
		return nil, err
	}

	out := make(GUIDMap)
	scanner := bufio.NewScanner(bytes.NewReader(b))
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.Split(line, " - ")
		if len(parts) != 2 {
			return nil, &ParseError{File: path, Err: fmt.Errorf("line %d: expected '<participant> - <GUID>', got %q", lineNo, line)}
		}
		out[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{File: path, Err: err}
	}

	return out, nil
}

// GUID returns the GUID for the subject label, or a *NotFoundError.
func (m GUIDMap) GUID(subject string) (string, error) {
	guid, exists := m[subject]
	if !exists {
		return "", &NotFoundError{File: "GUID mapping", Key: fmt.Sprintf("participant=%s", subject)}
	}
	return guid, nil
}
