package image03

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// CosineToOrientation deduces the slicing plane from the six direction
// cosines of the DICOM ImageOrientationPatient field. The first triplet is the
// direction of the rows and the second the direction of the columns, both in
// the DICOM patient coordinate system; the normal of the plane they span
// tells us whether the slices are sagittal, coronal or axial.
//
// See http://nipy.org/nibabel/dicom/dicom_orientation.html and
// https://stackoverflow.com/a/45469577
func CosineToOrientation(iop []float64) (string, error) {
	if len(iop) != 6 {
		return "", fmt.Errorf("expected 6 direction cosines, got %d (%v)", len(iop), iop)
	}

	row := r3.Vec{X: math.RoundToEven(iop[0]), Y: math.RoundToEven(iop[1]), Z: math.RoundToEven(iop[2])}
	col := r3.Vec{X: math.RoundToEven(iop[3]), Y: math.RoundToEven(iop[4]), Z: math.RoundToEven(iop[5])}
	plane := r3.Cross(row, col)

	switch {
	case math.Abs(plane.X) == 1:
		return "Sagittal", nil
	case math.Abs(plane.Y) == 1:
		return "Coronal", nil
	case math.Abs(plane.Z) == 1:
		return "Axial", nil
	}

	return "", fmt.Errorf("could not deduce the image orientation of %v. 'plane' value is %v", iop, plane)
}
