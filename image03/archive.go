package image03

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/WillForan/bids2nda"
	"github.com/WillForan/bids2nda/sidecar"
	"github.com/carbocation/pfx"
)

// MetadataZipName is the name of the provenance archive for an image, e.g.
// sub-1_task-rest_bold.metadata.zip.
func MetadataZipName(file string) string {
	return strings.Split(filepath.Base(file), ".")[0] + ".metadata.zip"
}

// EventsFile finds the events table for a bold image: first next to the image,
// then at the dataset level for its task. It returns the path found (or "")
// and the name the table is stored under in the archive.
func EventsFile(root, file string) (path, archiveName string) {
	path = strings.Split(file, "_bold")[0] + "_events.tsv"
	archiveName = filepath.Base(path)
	if bids2nda.FileExists(path) {
		return path, archiveName
	}

	if parts := strings.SplitN(file, "_task-", 2); len(parts) == 2 {
		taskName := strings.Split(parts[1], "_")[0]
		path = filepath.Join(root, "task-"+taskName+"_events.tsv")
		if bids2nda.FileExists(path) {
			return path, archiveName
		}
	}

	return "", archiveName
}

// WriteMetadataZip stores the merged sidecar metadata of file, plus its events
// table for bold images, in outputDirectory. The archive's path is returned.
func WriteMetadataZip(outputDirectory, root, file, suffix string, metadata sidecar.Metadata) (string, error) {
	if err := os.MkdirAll(outputDirectory, os.ModePerm); err != nil {
		return "", pfx.Err(err)
	}

	zipPath := filepath.Join(outputDirectory, MetadataZipName(file))
	outFile, err := os.Create(zipPath)
	if err != nil {
		return "", pfx.Err(err)
	}
	defer outFile.Close()

	zw := zip.NewWriter(outFile)

	js, err := metadata.JSON()
	if err != nil {
		return "", err
	}
	if err := addToZip(zw, filepath.Base(sidecar.SidecarPath(file)), strings.NewReader(string(js))); err != nil {
		return "", err
	}

	if suffix == "bold" {
		if eventsPath, archiveName := EventsFile(root, file); eventsPath != "" {
			ef, err := os.Open(eventsPath)
			if err != nil {
				return "", pfx.Err(err)
			}
			defer ef.Close()

			if err := addToZip(zw, archiveName, ef); err != nil {
				return "", err
			}
		}
	}

	if err := zw.Close(); err != nil {
		return "", pfx.Err(err)
	}

	return zipPath, outFile.Close()
}

func addToZip(zw *zip.Writer, name string, r io.Reader) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return pfx.Err(err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return pfx.Err(err)
	}
	return nil
}
