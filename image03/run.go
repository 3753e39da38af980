// Package image03 assembles the NDA image03 submission for a BIDS dataset:
// one Row per NIfTI image plus a ZIP of the BIDS metadata behind it.
package image03

import (
	"fmt"
	"log"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/WillForan/bids2nda"
	"github.com/WillForan/bids2nda/experimentid"
	"github.com/WillForan/bids2nda/sessioninfo"
	"github.com/WillForan/bids2nda/sidecar"
	"github.com/araddon/dateparse"
	"github.com/carbocation/pfx"
)

// Config carries everything Run needs.
type Config struct {
	BIDSDirectory   string
	OutputDirectory string
	GUIDs           bids2nda.GUIDMap

	// ExperimentIDs is consulted when a sidecar has no ExperimentID. May be
	// nil.
	ExperimentIDs experimentid.Lookup

	// SessionMapping is the optional auxiliary participant/session table.
	SessionMapping *bids2nda.Table

	// Concurrency is the number of images processed at once. Values below 1
	// mean 1.
	Concurrency int

	// LoadHeader defaults to LoadNiftiHeader.
	LoadHeader HeaderLoader
}

// ImageFiles lists the NIfTI images of a dataset: first those in
// sub-*/<datatype>/, then those in sub-*/ses-*/<datatype>/.
func ImageFiles(root string) ([]string, error) {
	patterns := []string{
		filepath.Join(root, "sub-*", "*", "sub-*.nii.gz"),
		filepath.Join(root, "sub-*", "*", "sub-*.nii"),
		filepath.Join(root, "sub-*", "ses-*", "*", "sub-*_ses-*.nii.gz"),
		filepath.Join(root, "sub-*", "ses-*", "*", "sub-*_ses-*.nii"),
	}

	out := make([]string, 0)
	for _, pattern := range patterns {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, pfx.Err(err)
		}
		out = append(out, files...)
	}

	return out, nil
}

// Run builds one Row per image in the dataset, in ImageFiles order, writing
// the metadata archives along the way. Any error aborts the whole run: no
// image is started after the first failure, and the failure earliest in
// ImageFiles order is returned.
func Run(cfg Config) ([]Row, error) {
	if cfg.LoadHeader == nil {
		cfg.LoadHeader = LoadNiftiHeader
	}

	participants, err := sessioninfo.ReadParticipantInfo(cfg.BIDSDirectory, cfg.SessionMapping)
	if err != nil {
		return nil, err
	}

	files, err := ImageFiles(cfg.BIDSDirectory)
	if err != nil {
		return nil, err
	}
	log.Printf("Found %d images in %s\n", len(files), cfg.BIDSDirectory)

	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	rows := make([]Row, len(files))
	errs := make([]error, len(files))
	sem := make(chan struct{}, concurrency)
	var failed atomic.Bool

	for i, file := range files {

		// Will block after `concurrency` simultaneous goroutines are running
		sem <- struct{}{}

		// One unresolvable image aborts the run, so don't start any more.
		// Images already in flight are allowed to finish.
		if failed.Load() {
			<-sem
			break
		}

		go func(i int, file string) {
			defer func() { <-sem }()

			rows[i], errs[i] = cfg.rowForImage(participants, file)
			if errs[i] != nil {
				failed.Store(true)
			}
		}(i, file)
	}

	// Wait for the stragglers
	for i := 0; i < cap(sem); i++ {
		sem <- struct{}{}
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return rows, nil
}

func (cfg Config) rowForImage(participants *bids2nda.Table, file string) (Row, error) {
	root := cfg.BIDSDirectory
	fname := filepath.Base(file)
	entities := sidecar.FromFilename(fname)
	sub := entities.String("sub")
	ses := entities.String("ses")

	metadata, err := sidecar.ForImage(root, file)
	if err != nil {
		return Row{}, err
	}

	guid, err := cfg.GUIDs.GUID(sub)
	if err != nil {
		return Row{}, err
	}

	row := Row{
		SubjectKey:   guid,
		SrcSubjectID: sub,
		ImageFile:    file,
	}

	// Demographics and the session date, if sessions.tsv has one
	subjRow, date, err := participantRow(root, participants, sub, ses)
	if err != nil {
		return Row{}, err
	}

	// Only set already if found in sessions.tsv. If we have a scans file, let
	// it overwrite: e.g., maybe the MPRAGE was collected on a different day
	// from the rest scan.
	scansFile := sessioninfo.ScansFile(root, sub, ses)
	if date == "" || bids2nda.FileExists(scansFile) {
		date, err = sessioninfo.ReadScanDate(scansFile, file)
		if err != nil {
			return Row{}, err
		}
	}
	if row.InterviewDate, err = ndaDate(date); err != nil {
		return Row{}, pfx.Err(fmt.Errorf("%s: acq_time %q: %w", file, date, err))
	}

	age := participants.Get(subjRow, sessioninfo.AgeColumn)
	if !age.Valid {
		return Row{}, pfx.Err(fmt.Errorf("no age for sub-%s (ses=%s) needed for %s", sub, ses, file))
	}
	if row.InterviewAge, err = ageInMonths(age.String); err != nil {
		return Row{}, pfx.Err(fmt.Errorf("sub-%s age %q: %w", sub, age.String, err))
	}
	row.Gender = participants.Get(subjRow, sessioninfo.SexColumn).String

	components := strings.Split(fname, "_")
	suffix := strings.Split(components[len(components)-1], ".")[0]

	description := suffix
	if suffix == "bold" {
		// Task name ideally comes from the sidecar ('TaskName') but we can
		// resort to what is in the file name (_task-)
		task := metadata.String("TaskName")
		if task == "" {
			task = metadata.String("task")
			log.Printf("WARNING: TaskName is not in json sidecar for %s. Using filename 'task-': %s\n", file, task)
		}
		if task == "" {
			return Row{}, fmt.Errorf("No TaskName metadata nor task-* for bold file '%s'", file)
		}
		description = suffix + " " + task
		row.ExperimentID = metadata.String("ExperimentID")
	}

	if row.ExperimentID == "" {
		row.ExperimentID = cfg.ExperimentIDs.Find(file)
	}
	if suffix == "bold" && row.ExperimentID == "" {
		log.Printf("WARNING: no ExperimentID in sidecar for bold file '%s'. This is likely to cause an error during NDA upload.\n", file)
	}

	scanType, exists := SuffixToScanType[suffix]
	if !exists {
		return Row{}, fmt.Errorf("unknown scan_type for suffix %s (%s)", suffix, file)
	}

	row.ImageDescription = description
	row.ScanType = scanType
	row.ScanObject = "Live"
	row.ImageFileFormat = "NIFTI"
	row.ImageModality = "MRI"
	row.ScannerManufacturerPD = metadata.String("Manufacturer")
	row.ScannerTypePD = metadata.String("ManufacturersModelName")
	row.ScannerSoftwareVersionsPD = metadata.String("SoftwareVersions")
	row.MagneticFieldStrength = metadata.String("MagneticFieldStrength")
	row.MRIEchoTimePD = metadata.String("EchoTime")
	row.FlipAngle = metadata.String("FlipAngle")
	row.ReceiveCoil = metadata.String("ReceiveCoilName")

	if row.ImageOrientation, err = orientation(metadata); err != nil {
		return Row{}, pfx.Err(fmt.Errorf("%s: %w", file, err))
	}

	row.TransformationPerformed = "Yes"
	row.TransformationType = TransformationType

	hdr, err := cfg.LoadHeader(file)
	if err != nil {
		return Row{}, err
	}
	if err := fillFromHeader(&row, hdr, metadata, suffix, description, file); err != nil {
		return Row{}, err
	}

	row.PatientPosition = PatientPosition
	row.Visit = ses

	// The filename always contributes keys, so in practice every image gets
	// an archive.
	if len(metadata) > 0 || suffix == "bold" || suffix == "dwi" {
		zipPath, err := WriteMetadataZip(cfg.OutputDirectory, root, file, suffix, metadata)
		if err != nil {
			return Row{}, err
		}
		row.DataFile2 = zipPath
		row.DataFile2Type = DataFile2Type
	}

	if suffix == "dwi" {
		row.BvecFile = gradientFile(root, file, "bvec")
		row.BvalFile = gradientFile(root, file, "bval")
		row.BvekBvalFiles = "No"
		if row.BvecFile != "" || row.BvalFile != "" {
			row.BvekBvalFiles = "Yes"
		}
	}

	row.DeviceSerialNumber = metadata.String("DeviceSerialNumber")

	return row, nil
}

// participantRow finds the participant (and session) row for an image and
// returns the session acq_time when one is recorded.
func participantRow(root string, participants *bids2nda.Table, sub, ses string) (int, string, error) {
	var rows []int
	if ses != "" && participants.HasColumn(bids2nda.SessionIDColumn) {
		rows = participants.Select("sub-"+sub, "ses-"+ses)
		if len(rows) == 0 {
			return 0, "", &bids2nda.NotFoundError{
				File: filepath.Join(root, "sub-"+sub, "sub-"+sub+"_sessions.tsv"),
				Key:  "session_id=ses-" + ses,
			}
		}
	} else {
		rows = participants.Select("sub-"+sub, "")
		if len(rows) == 0 {
			return 0, "", &bids2nda.NotFoundError{
				File: filepath.Join(root, "participants.tsv"),
				Key:  "participant_id=sub-" + sub,
			}
		}
	}

	if len(rows) != 1 {
		log.Printf("WARNING: %d matching rows for sub-%s (ses=%s). Check participants.tsv, sessions.tsv, and/or --session_mapping for duplicates\n", len(rows), sub, ses)
	}

	date := ""
	if ses != "" {
		date = participants.Get(rows[0], sessioninfo.AcqTimeColumn).String
	}

	return rows[0], date, nil
}

// ndaDate renders an acq_time such as 2020-12-31T10:00:00 as 12/31/2020.
func ndaDate(acqTime string) (string, error) {
	t, err := dateparse.ParseAny(acqTime)
	if err != nil {
		return "", err
	}
	return t.Format("01/02/2006"), nil
}

// ageInMonths converts an age in years to whole months, rounding halves to
// even.
func ageInMonths(years string) (string, error) {
	age, err := strconv.ParseFloat(strings.TrimSpace(years), 64)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(int(math.RoundToEven(age * 12))), nil
}

// orientation prefers ImageOrientationPatientDICOM, populated by recent
// dcm2niix, over the ImageOrientationPatient that heudiconv may record in
// its exhaustive global.const section.
func orientation(metadata sidecar.Metadata) (string, error) {
	iop, exists := metadata.Value("ImageOrientationPatientDICOM")
	if !exists {
		iop, exists = metadata.Path("$.global.const.ImageOrientationPatient")
	}
	if !exists || iop == nil {
		return "", nil
	}

	cosines, err := sidecar.Floats(iop)
	if err != nil {
		return "", err
	}

	return CosineToOrientation(cosines)
}

func fillFromHeader(row *Row, hdr ImageHeader, metadata sidecar.Metadata, suffix, description, file string) error {
	shape := hdr.Shape()
	zooms := hdr.Zooms()
	if len(shape) < 3 || len(zooms) < 3 {
		return fmt.Errorf("%s: expected at least 3 dimensions, got shape %v", file, shape)
	}
	fourD := len(shape) > 3 && len(zooms) > 3

	row.ImageNumDimensions = strconv.Itoa(len(shape))
	row.ImageExtent1 = strconv.Itoa(shape[0])
	row.ImageExtent2 = strconv.Itoa(shape[1])
	row.ImageExtent3 = strconv.Itoa(shape[2])
	if fourD {
		row.ImageExtent4 = strconv.Itoa(shape[3])
	}

	switch {
	case suffix == "bold":
		row.Extent4Type = "time"
	case description == "epi" && len(shape) == 4:
		row.Extent4Type = "time"
	case suffix == "dwi":
		row.Extent4Type = "diffusion weighting"
	}

	row.AcquisitionMatrix = fmt.Sprintf("%d x %d", shape[0], shape[1])

	row.ImageResolution1 = formatFloat(zooms[0])
	row.ImageResolution2 = formatFloat(zooms[1])
	row.ImageResolution3 = formatFloat(zooms[2])
	row.ImageSliceThickness = formatFloat(zooms[2])
	if thickness, exists := metadata.Path("$.global.const.SliceThickness"); exists {
		row.ImageSliceThickness = sidecar.Format(thickness)
	}

	// PhotometricInterpretation is required for non-DICOM uploads. MONOCHROME2
	// (a single monochrome plane, minimum displayed as black) is what the MR
	// sequences we know of report.
	if photomet, exists := metadata.Path("$.global.const.PhotometricInterpretation"); exists {
		row.PhotometInterpret = sidecar.Format(photomet)
	}
	if row.PhotometInterpret == "" && monochromeSuffixes[suffix] {
		row.PhotometInterpret = "MONOCHROME2"
	}
	if row.PhotometInterpret == "" {
		log.Printf("WARNING: PhotometricInterpretation not in metadata and unknown for %s (%s)\n", suffix, file)
	}

	if fourD {
		row.ImageResolution4 = formatFloat(zooms[3])
	}

	spatial, temporal := hdr.Units()
	unitType := unitName(spatial)
	if unitType == UnknownUnit {
		log.Printf("WARNING: xyzt unit type of %s is %s\n", file, unitType)
	}
	row.ImageUnit1 = unitType
	row.ImageUnit2 = unitType
	row.ImageUnit3 = unitType

	if fourD {
		row.ImageUnit4 = unitName(temporal)
		tr := zooms[3]
		if row.ImageUnit4 == "Milliseconds" {
			tr /= 1000
		}
		row.MRIRepetitionTimePD = formatFloat(tr)
	} else {
		row.MRIRepetitionTimePD = metadata.String("RepetitionTime")
	}

	row.SliceTiming = metadata.String("SliceTiming")
	row.MRIFieldOfViewPD = fmt.Sprintf("%s x %s %s", formatFloat(zooms[0]), formatFloat(zooms[1]), unitType)

	return nil
}

// gradientFile returns the .bvec or .bval next to a dwi image, or the
// dataset-level dwi.<ext>, or "" if neither exists.
func gradientFile(root, file, ext string) string {
	path := strings.Split(file, "_dwi")[0] + "_dwi." + ext
	if bids2nda.FileExists(path) {
		return path
	}

	path = filepath.Join(root, "dwi."+ext)
	if bids2nda.FileExists(path) {
		return path
	}

	return ""
}

// Zooms come from float32 header fields; format at that precision so that
// 0.3 does not print as 0.30000001192092896.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 32)
}
