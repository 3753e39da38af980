package image03

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/WillForan/bids2nda"
	"github.com/carbocation/pfx"
	"github.com/henghuang/nifti"
)

// ImageHeader is the little we need to know about an image's pixel grid.
type ImageHeader interface {
	// Shape is the size of each populated dimension.
	Shape() []int
	// Zooms is the voxel spacing along each dimension in Shape.
	Zooms() []float64
	// Units names the spatial and temporal units ("mm", "sec", "unknown", ...).
	Units() (spatial, temporal string)
}

// HeaderLoader reads the header of the image at path.
type HeaderLoader func(path string) (ImageHeader, error)

// NiftiHeader adapts a NIfTI-1 header to ImageHeader.
type NiftiHeader struct {
	nifti.Nifti1Header
}

// niftiHeaderSize is sizeof_hdr for NIfTI-1.
const niftiHeaderSize = 348

// LoadNiftiHeader reads the header of a .nii or .nii.gz file. The file is
// opened and closed here rather than through nifti's LoadHeader, which leaves
// the *os.File behind a .nii.gz open and prints read errors instead of
// returning them.
func LoadNiftiHeader(path string) (ImageHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	rc, err := bids2nda.MaybeDecompressReadCloser(f)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}
	defer rc.Close()

	hdr, err := ReadNiftiHeader(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return NiftiHeader{hdr}, nil
}

// ReadNiftiHeader decodes a NIfTI-1 header from the start of r, in whichever
// byte order sizeof_hdr says it was written.
func ReadNiftiHeader(r io.Reader) (nifti.Nifti1Header, error) {
	var hdr nifti.Nifti1Header

	raw := make([]byte, niftiHeaderSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return hdr, fmt.Errorf("not a NIfTI-1 file: %w", err)
	}

	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(raw) == niftiHeaderSize:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(raw) == niftiHeaderSize:
		order = binary.BigEndian
	default:
		return hdr, fmt.Errorf("not a NIfTI-1 file (sizeof_hdr=%d)", binary.LittleEndian.Uint32(raw))
	}

	if err := binary.Read(bytes.NewReader(raw), order, &hdr); err != nil {
		return hdr, pfx.Err(err)
	}

	return hdr, nil
}

func (h NiftiHeader) ndim() int {
	n := int(h.Dim[0])
	if n < 1 || n > 7 {
		// dim[0] outside 1..7 means the header is byte swapped or broken;
		// fall back to the three spatial axes.
		return 3
	}
	return n
}

func (h NiftiHeader) Shape() []int {
	out := make([]int, h.ndim())
	for i := range out {
		out[i] = int(h.Dim[i+1])
	}
	return out
}

func (h NiftiHeader) Zooms() []float64 {
	out := make([]float64, h.ndim())
	for i := range out {
		out[i] = float64(h.Pixdim[i+1])
	}
	return out
}

// Units decodes xyzt_units: bits 0-2 hold the spatial unit and bits 3-5 the
// temporal one.
func (h NiftiHeader) Units() (string, string) {
	var spatial, temporal string

	switch int(h.XyztUnits & 0x07) {
	case 1:
		spatial = "meter"
	case 2:
		spatial = "mm"
	case 3:
		spatial = "micron"
	default:
		spatial = "unknown"
	}

	switch int(h.XyztUnits & 0x38) {
	case 8:
		temporal = "sec"
	case 16:
		temporal = "msec"
	case 24:
		temporal = "usec"
	default:
		temporal = "unknown"
	}

	return spatial, temporal
}
