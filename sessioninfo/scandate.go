package sessioninfo

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/WillForan/bids2nda"
	"gopkg.in/guregu/null.v3"
)

const FilenameColumn = "filename"

// ScansFile returns where BIDS keeps the scans table for a subject and,
// optionally, session. sub and ses are labels without their prefixes.
func ScansFile(root, sub, ses string) string {
	if ses == "" {
		return filepath.Join(root, "sub-"+sub, "sub-"+sub+"_scans.tsv")
	}
	return filepath.Join(root, "sub-"+sub, "ses-"+ses, "sub-"+sub+"_ses-"+ses+"_scans.tsv")
}

// ReadScanDate returns the acq_time recorded for file in scansFile. The row
// whose filename column is a suffix of file is used, so relative names in the
// table match absolute paths. The first matching row wins, which means an
// identically named file elsewhere could match as well.
func ReadScanDate(scansFile, file string) (string, error) {
	if !bids2nda.FileExists(scansFile) {
		return "", &bids2nda.MissingFileError{
			File:   scansFile,
			Detail: "information about scan date required by NDA could not be found. Alternatively, information could be stored in sessions.tsv",
		}
	}

	scans, err := bids2nda.ReadTable(scansFile, nil)
	if err != nil {
		return "", err
	}
	if missing := scans.Missing(FilenameColumn, AcqTimeColumn); len(missing) > 0 {
		return "", &bids2nda.SchemaError{
			File:    scansFile,
			Missing: missing,
			Detail:  "need 'filename' and 'acq_time' (YYYY-MM-DD) to create 'interview_date' nda column",
		}
	}

	for i := range scans.Rows {
		name := scans.Get(i, FilenameColumn)
		if !name.Valid {
			continue
		}
		if strings.HasSuffix(file, filepath.FromSlash(name.String)) {
			return scans.Get(i, AcqTimeColumn).String, nil
		}
	}

	return "", &bids2nda.NotFoundError{File: scansFile, Key: fmt.Sprintf("filename=%s", file)}
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}
