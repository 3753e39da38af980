package image03

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// CSVName is the file Write creates in the output directory.
const CSVName = "image03.csv"

// WriteCSV emits the NDA data structure line followed by a header and one
// line per row.
func WriteCSV(w io.Writer, rows []Row) error {
	if _, err := fmt.Fprintln(w, `"image","3"`); err != nil {
		return pfx.Err(err)
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return pfx.Err(err)
	}

	return nil
}

// Write creates outputDirectory/image03.csv.
func Write(outputDirectory string, rows []Row) error {
	if err := os.MkdirAll(outputDirectory, os.ModePerm); err != nil {
		return pfx.Err(err)
	}

	f, err := os.Create(filepath.Join(outputDirectory, CSVName))
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	fw := bufio.NewWriter(f)
	if err := WriteCSV(fw, rows); err != nil {
		return err
	}
	if err := fw.Flush(); err != nil {
		return pfx.Err(err)
	}

	return f.Close()
}
