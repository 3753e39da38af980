package image03

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/WillForan/bids2nda"
	"github.com/WillForan/bids2nda/experimentid"
)

type fakeHeader struct {
	shape    []int
	zooms    []float64
	spatial  string
	temporal string
}

func (h fakeHeader) Shape() []int            { return h.shape }
func (h fakeHeader) Zooms() []float64        { return h.zooms }
func (h fakeHeader) Units() (string, string) { return h.spatial, h.temporal }

func fakeLoader(path string) (ImageHeader, error) {
	if strings.Contains(path, "_bold") {
		return fakeHeader{[]int{64, 64, 30, 100}, []float64{3, 3, 3.3, 2000}, "mm", "msec"}, nil
	}
	return fakeHeader{[]int{176, 256, 256}, []float64{1, 1, 1}, "mm", "unknown"}, nil
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

// sessionDataset:
//
//	sub-a/sub-a_sessions.tsv
//	session_id	acq_time	age
//	ses-1	2015-12-31	20
//	ses-2	2025-01-01	39
//
//	sub-a/ses-1/sub-a_ses-1_scans.tsv
//	filename	acq_time
//	anat/sub-a_ses-1_T1w.nii.gz	2015-02-02
//	func/sub-a_ses-1_task-rest_bold.nii.gz	2010-12-01
func sessionDataset(t *testing.T) string {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "participants.tsv"), "participant_id\tsex\tage\nsub-a\tF\t19\n")
	writeFile(t, filepath.Join(root, "sub-a", "sub-a_sessions.tsv"),
		"session_id\tacq_time\tage\nses-1\t2015-12-31\t20\nses-2\t2025-01-01\t39\n")
	writeFile(t, filepath.Join(root, "sub-a", "ses-1", "sub-a_ses-1_scans.tsv"),
		"filename\tacq_time\nanat/sub-a_ses-1_T1w.nii.gz\t2015-02-02\nfunc/sub-a_ses-1_task-rest_bold.nii.gz\t2010-12-01\n")
	writeFile(t, filepath.Join(root, "sub-a", "ses-1", "anat", "sub-a_ses-1_T1w.nii.gz"), "")
	writeFile(t, filepath.Join(root, "sub-a", "ses-1", "func", "sub-a_ses-1_task-rest_bold.nii.gz"), "")
	writeFile(t, filepath.Join(root, "sub-a", "ses-1", "func", "sub-a_ses-1_task-rest_bold.json"),
		`{"TaskName": "rest", "Manufacturer": "Siemens", "ImageOrientationPatientDICOM": [1, 0, 0, 0, 1, 0]}`)
	writeFile(t, filepath.Join(root, "sub-a", "ses-2", "anat", "sub-a_ses-2_T1w.nii.gz"), "")
	writeFile(t, filepath.Join(root, "task-rest_events.tsv"), "onset\tduration\n0\t1\n")
	return root
}

func noSessionDataset(t *testing.T) string {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "participants.tsv"), "participant_id\tsex\tage\nsub-1\tM\t100\n")
	writeFile(t, filepath.Join(root, "sub-1", "sub-1_scans.tsv"),
		"filename\tacq_time\nfunc/sub-1_task-rest_bold.nii.gz\t2020-12-31\nanat/sub-1_T1w.nii.gz\t2020-12-30T10:11:12\n")
	writeFile(t, filepath.Join(root, "sub-1", "func", "sub-1_task-rest_bold.nii.gz"), "")
	writeFile(t, filepath.Join(root, "sub-1", "anat", "sub-1_T1w.nii.gz"), "")
	return root
}

func config(t *testing.T, root string, guids bids2nda.GUIDMap) Config {
	return Config{
		BIDSDirectory:   root,
		OutputDirectory: t.TempDir(),
		GUIDs:           guids,
		LoadHeader:      fakeLoader,
	}
}

func TestRunSessions(t *testing.T) {
	cfg := config(t, sessionDataset(t), bids2nda.GUIDMap{"a": "NDARAAAA"})
	lookup, err := experimentid.Parse(strings.NewReader("ExperimentID\tPattern\n123\ttask-rest\n"), "expids.tsv")
	if err != nil {
		t.Fatal(err)
	}
	cfg.ExperimentIDs = lookup

	rows, err := Run(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}

	t1, bold, t1ses2 := rows[0], rows[1], rows[2]

	// scans.tsv overwrites sessions.tsv where it exists
	if t1.InterviewDate != "02/02/2015" {
		t.Errorf("Expected T1w date from scans.tsv, got %s", t1.InterviewDate)
	}
	if bold.InterviewDate != "12/01/2010" {
		t.Errorf("Expected bold date from scans.tsv, got %s", bold.InterviewDate)
	}
	if t1ses2.InterviewDate != "01/01/2025" {
		t.Errorf("Expected ses-2 date from sessions.tsv, got %s", t1ses2.InterviewDate)
	}

	if t1.InterviewAge != "240" || t1ses2.InterviewAge != "468" {
		t.Errorf("Expected session ages in months, got %s and %s", t1.InterviewAge, t1ses2.InterviewAge)
	}
	if t1.Gender != "F" || t1.SubjectKey != "NDARAAAA" || t1.SrcSubjectID != "a" || t1.Visit != "1" {
		t.Errorf("Unexpected demographics %+v", t1)
	}

	if bold.ImageDescription != "bold rest" || bold.ScanType != "fMRI" {
		t.Errorf("Unexpected bold description %q / %q", bold.ImageDescription, bold.ScanType)
	}
	if bold.ExperimentID != "123" {
		t.Errorf("Expected experiment ID from lookup, got %q", bold.ExperimentID)
	}
	if t1.ExperimentID != "" {
		t.Errorf("Expected no experiment ID for T1w, got %q", t1.ExperimentID)
	}
	if bold.ImageOrientation != "Axial" || bold.ScannerManufacturerPD != "Siemens" {
		t.Errorf("Unexpected sidecar fields %q / %q", bold.ImageOrientation, bold.ScannerManufacturerPD)
	}
	if bold.ImageExtent4 != "100" || bold.Extent4Type != "time" || bold.ImageUnit4 != "Milliseconds" || bold.MRIRepetitionTimePD != "2" {
		t.Errorf("Unexpected 4D fields %+v", bold)
	}
	if bold.PhotometInterpret != "MONOCHROME2" || bold.ImageSliceThickness != "3.3" {
		t.Errorf("Unexpected photometric/thickness %q / %q", bold.PhotometInterpret, bold.ImageSliceThickness)
	}
	if bold.MRIFieldOfViewPD != "3 x 3 Millimeters" || bold.AcquisitionMatrix != "64 x 64" {
		t.Errorf("Unexpected FOV/matrix %q / %q", bold.MRIFieldOfViewPD, bold.AcquisitionMatrix)
	}
	if t1.ImageExtent4 != "" || t1.ImageUnit4 != "" || t1.ImageNumDimensions != "3" {
		t.Errorf("Unexpected 3D fields %+v", t1)
	}

	if bold.DataFile2 != filepath.Join(cfg.OutputDirectory, "sub-a_ses-1_task-rest_bold.metadata.zip") {
		t.Fatalf("Unexpected archive path %s", bold.DataFile2)
	}
	names := zipEntries(t, bold.DataFile2)
	expected := []string{"sub-a_ses-1_task-rest_bold.json", "sub-a_ses-1_task-rest_events.tsv"}
	if strings.Join(names, ",") != strings.Join(expected, ",") {
		t.Errorf("Expected archive entries %v, got %v", expected, names)
	}
}

func TestRunNoSessions(t *testing.T) {
	cfg := config(t, noSessionDataset(t), bids2nda.GUIDMap{"1": "NDARXXXX"})

	rows, err := Run(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	// anat sorts before func
	t1, bold := rows[0], rows[1]
	if t1.InterviewDate != "12/30/2020" || bold.InterviewDate != "12/31/2020" {
		t.Errorf("Unexpected dates %s / %s", t1.InterviewDate, bold.InterviewDate)
	}
	if bold.InterviewAge != "1200" || bold.Gender != "M" || bold.Visit != "" {
		t.Errorf("Unexpected demographics %+v", bold)
	}

	// No sidecar: task name comes from the filename
	if bold.ImageDescription != "bold rest" {
		t.Errorf("Expected filename task, got %q", bold.ImageDescription)
	}

	writeFile(t, filepath.Join(cfg.BIDSDirectory, "sub-1", "func", "sub-1_task-rest_bold.json"), `{"TaskName": "NOTREST", "ExperimentID": "77"}`)
	rows, err = Run(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if rows[1].ImageDescription != "bold NOTREST" || rows[1].ExperimentID != "77" {
		t.Errorf("Expected sidecar task and ID, got %q / %q", rows[1].ImageDescription, rows[1].ExperimentID)
	}
}

func TestRunConcurrentKeepsOrder(t *testing.T) {
	root := sessionDataset(t)

	serial, err := Run(config(t, root, bids2nda.GUIDMap{"a": "NDARAAAA"}))
	if err != nil {
		t.Fatal(err)
	}

	cfg := config(t, root, bids2nda.GUIDMap{"a": "NDARAAAA"})
	cfg.Concurrency = 4
	parallel, err := Run(cfg)
	if err != nil {
		t.Fatal(err)
	}

	for i := range serial {
		if serial[i].ImageFile != parallel[i].ImageFile || serial[i].InterviewDate != parallel[i].InterviewDate {
			t.Errorf("Row %d differs: %s vs %s", i, serial[i].ImageFile, parallel[i].ImageFile)
		}
	}
}

func TestRunMissingScans(t *testing.T) {
	root := noSessionDataset(t)
	if err := os.Remove(filepath.Join(root, "sub-1", "sub-1_scans.tsv")); err != nil {
		t.Fatal(err)
	}

	_, err := Run(config(t, root, bids2nda.GUIDMap{"1": "NDARXXXX"}))
	var missing *bids2nda.MissingFileError
	if !errors.As(err, &missing) {
		t.Errorf("Expected MissingFileError, got %v", err)
	}
}

func TestRunStopsAtFirstError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "participants.tsv"), "participant_id\tsex\tage\nsub-1\tM\t30\nsub-2\tF\t40\n")
	writeFile(t, filepath.Join(root, "sub-1", "anat", "sub-1_T1w.nii.gz"), "")
	writeFile(t, filepath.Join(root, "sub-2", "anat", "sub-2_T1w.nii.gz"), "")
	writeFile(t, filepath.Join(root, "sub-2", "sub-2_scans.tsv"), "filename\tacq_time\nanat/sub-2_T1w.nii.gz\t2020-12-31\n")

	// sub-1 has no scans.tsv, so its date cannot be resolved
	cfg := config(t, root, bids2nda.GUIDMap{"1": "NDARXXXX", "2": "NDARYYYY"})
	rows, err := Run(cfg)
	var missing *bids2nda.MissingFileError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingFileError, got %v", err)
	}
	if rows != nil {
		t.Errorf("Expected no rows, got %d", len(rows))
	}

	if _, err := os.Stat(filepath.Join(cfg.OutputDirectory, "sub-2_T1w.metadata.zip")); !os.IsNotExist(err) {
		t.Errorf("Expected no archive for sub-2 after sub-1 failed, got %v", err)
	}
}

func TestRunMissingGUID(t *testing.T) {
	_, err := Run(config(t, noSessionDataset(t), bids2nda.GUIDMap{}))
	var notFound *bids2nda.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}

func TestRunUnknownSuffix(t *testing.T) {
	root := noSessionDataset(t)
	writeFile(t, filepath.Join(root, "sub-1", "anat", "sub-1_angio.nii.gz"), "")
	writeFile(t, filepath.Join(root, "sub-1", "sub-1_scans.tsv"), "filename\tacq_time\nanat/sub-1_angio.nii.gz\t2020-12-31\nfunc/sub-1_task-rest_bold.nii.gz\t2020-12-31\nanat/sub-1_T1w.nii.gz\t2020-12-31\n")

	_, err := Run(config(t, root, bids2nda.GUIDMap{"1": "NDARXXXX"}))
	if err == nil || !strings.Contains(err.Error(), "angio") {
		t.Errorf("Expected unknown suffix error, got %v", err)
	}
}

func TestDWIGradients(t *testing.T) {
	root := noSessionDataset(t)
	writeFile(t, filepath.Join(root, "sub-1", "dwi", "sub-1_dwi.nii.gz"), "")
	writeFile(t, filepath.Join(root, "sub-1", "dwi", "sub-1_dwi.bval"), "0 1000\n")
	writeFile(t, filepath.Join(root, "sub-1", "sub-1_scans.tsv"), "filename\tacq_time\ndwi/sub-1_dwi.nii.gz\t2021-01-01\nfunc/sub-1_task-rest_bold.nii.gz\t2020-12-31\nanat/sub-1_T1w.nii.gz\t2020-12-31\n")

	rows, err := Run(config(t, root, bids2nda.GUIDMap{"1": "NDARXXXX"}))
	if err != nil {
		t.Fatal(err)
	}

	var dwi *Row
	for i := range rows {
		if strings.HasSuffix(rows[i].ImageFile, "_dwi.nii.gz") {
			dwi = &rows[i]
		}
	}
	if dwi == nil {
		t.Fatal("Expected a dwi row")
	}
	if dwi.BvalFile == "" || dwi.BvecFile != "" || dwi.BvekBvalFiles != "Yes" {
		t.Errorf("Unexpected gradient fields %q / %q / %q", dwi.BvalFile, dwi.BvecFile, dwi.BvekBvalFiles)
	}
	if dwi.Extent4Type != "diffusion weighting" || dwi.ScanType != "MR diffusion" {
		t.Errorf("Unexpected dwi fields %q / %q", dwi.Extent4Type, dwi.ScanType)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := []Row{{SubjectKey: "NDARXXXX", SrcSubjectID: "1", ImageDescription: "bold rest"}}
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d: %s", len(lines), buf.String())
	}
	if lines[0] != `"image","3"` {
		t.Errorf("Unexpected first line %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "subjectkey,src_subject_id,interview_date") ||
		!strings.HasSuffix(lines[1], "image_thumbnail_file") {
		t.Errorf("Unexpected header %s", lines[1])
	}
	if !strings.HasPrefix(lines[2], "NDARXXXX,1,") {
		t.Errorf("Unexpected row %s", lines[2])
	}
}

func TestWrite(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "out")
	if err := Write(out, []Row{{SubjectKey: "NDARXXXX"}}); err != nil {
		t.Fatal(err)
	}
	if !bids2nda.FileExists(filepath.Join(out, CSVName)) {
		t.Error("Expected image03.csv to be written")
	}
}

func zipEntries(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}
