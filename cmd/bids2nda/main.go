// bids2nda extracts the NDA image03 submission for a BIDS dataset. Each NIfTI
// image becomes one row of OUTPUT_DIRECTORY/image03.csv, and the BIDS metadata
// behind it is stored next to the CSV as a ZIP file.
//
// Usage:
//
//	bids2nda [flags] BIDS_DIRECTORY GUID_MAPPING OUTPUT_DIRECTORY
//
// GUID_MAPPING is a text file with one 'subject_label - GUID' per line. Any
// argument of the form @file is replaced by the whitespace-separated words in
// that file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/storage"
	"github.com/WillForan/bids2nda"
	_ "github.com/WillForan/bids2nda/compileinfoprint"
	"github.com/WillForan/bids2nda/experimentid"
	"github.com/WillForan/bids2nda/image03"
	"github.com/WillForan/bids2nda/sessioninfo"
)

func main() {
	var experimentIDs, sessionMapping string
	var concurrency int

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] BIDS_DIRECTORY GUID_MAPPING OUTPUT_DIRECTORY\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.StringVar(&experimentIDs, "experimentid_tsv", "", "(Optional) Tab-separated file with ExperimentID and Pattern columns. Used to fill experiment_id when a sidecar has no ExperimentID. The first Pattern (a regular expression) that matches the image path wins.")
	flag.StringVar(&sessionMapping, "session_mapping", "", "(Optional) Comma- or tab-separated file with participant_id and optionally session_id, age, sex, and acq_time. Its values take precedence over participants.tsv and sessions.tsv.")
	flag.IntVar(&concurrency, "concurrency", 1, "Number of images to process at once.")

	args, err := ExpandArgFiles(os.Args[1:])
	if err != nil {
		log.Fatalln(err)
	}
	flag.CommandLine.Parse(args)

	if flag.NArg() != 3 {
		flag.Usage()
		os.Exit(1)
	}

	paths := make([]string, 0, 5)
	for _, p := range append(flag.Args(), experimentIDs, sessionMapping) {
		expanded, err := bids2nda.ExpandHome(p)
		if err != nil {
			log.Fatalln(err)
		}
		paths = append(paths, expanded)
	}

	cfg := image03.Config{
		BIDSDirectory:   paths[0],
		OutputDirectory: paths[2],
		Concurrency:     concurrency,
	}
	guidMapping, experimentIDs, sessionMapping := paths[1], paths[3], paths[4]

	// Initialize the Google Storage client, but only if one of the tables is
	// a Google Storage path.
	var client *storage.Client
	if bids2nda.NeedsStorageClient(guidMapping, experimentIDs, sessionMapping) {
		client, err = storage.NewClient(context.Background())
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
	}

	if cfg.GUIDs, err = bids2nda.ReadGUIDMap(guidMapping, client); err != nil {
		log.Fatalln(err)
	}

	if experimentIDs != "" {
		if cfg.ExperimentIDs, err = experimentid.Read(experimentIDs, client); err != nil {
			log.Fatalln(err)
		}
	}

	if sessionMapping != "" {
		if cfg.SessionMapping, err = sessioninfo.ReadSessionMapping(sessionMapping, client); err != nil {
			log.Fatalln(err)
		}
	}

	if err := run(cfg); err != nil {
		log.Fatalln(err)
	}

	log.Println("Metadata extraction complete.")
}

func run(cfg image03.Config) error {
	rows, err := image03.Run(cfg)
	if err != nil {
		return err
	}

	return image03.Write(cfg.OutputDirectory, rows)
}
