package image03

// SuffixToScanType maps a BIDS filename suffix onto the NDA scan_type
// vocabulary. Unmapped NDA types include MR structural (MPRAGE), MR structural
// (FSPGR), PET, ASL, microscopy, MR structural (PD, T2), MR structural (B0
// map), MR structural (B1 map), single- and multi-shell DTI, and X-Ray.
var SuffixToScanType = map[string]string{
	"dwi":        "MR diffusion",
	"bold":       "fMRI",
	"sbref":      "fMRI",
	"T1w":        "MR structural (T1)",
	"UNIT1":      "MR structural (T1)",
	"PD":         "MR structural (PD)",
	"T2w":        "MR structural (T2)",
	"inplaneT2":  "MR structural (T2)",
	"FLAIR":      "FLAIR",
	"FLASH":      "MR structural (FLASH)",
	"epi":        "Field Map",
	"phase1":     "Field Map",
	"phase2":     "Field Map",
	"phasediff":  "Field Map",
	"magnitude1": "Field Map",
	"magnitude2": "Field Map",
	"fieldmap":   "Field Map",
}

const UnknownUnit = "Unknown"

// Units maps NIfTI xyzt unit names onto NDA unit names. Anything else is
// UnknownUnit.
var Units = map[string]string{
	"mm":      "Millimeters",
	"sec":     "Seconds",
	"msec":    "Milliseconds",
	"unknown": UnknownUnit,
}

// unitName returns the NDA name for a NIfTI unit.
func unitName(u string) string {
	if name, exists := Units[u]; exists {
		return name
	}
	return UnknownUnit
}

// Suffixes whose photometric interpretation is MONOCHROME2 when the metadata
// does not say otherwise.
var monochromeSuffixes = map[string]bool{
	"dwi":   true,
	"bold":  true,
	"T1w":   true,
	"T2w":   true,
	"sbref": true,
	"epi":   true,
}

const (
	DataFile2Type      = "ZIP file with additional metadata from Brain Imaging Data Structure (http://bids.neuroimaging.io)"
	TransformationType = "BIDS2NDA"
	PatientPosition    = "head first-supine"
)
