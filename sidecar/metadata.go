package sidecar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/WillForan/bids2nda"
	"github.com/carbocation/pfx"
	"github.com/ohler55/ojg/jp"
)

// Metadata is the merged key/value metadata for one image. Values are
// whatever the sidecars hold: strings, json.Number, bools, slices or nested
// maps.
type Metadata map[string]any

// SidecarPath returns the JSON sidecar path for a NIfTI image path.
func SidecarPath(imagePath string) string {
	for _, ext := range []string{".nii.gz", ".nii"} {
		if strings.HasSuffix(imagePath, ext) {
			return strings.TrimSuffix(imagePath, ext) + ".json"
		}
	}
	return imagePath + ".json"
}

// FromFilename splits the base name of path into its key-value entities, so
// that sub-1_task-rest_acq-fast_bold.json yields sub:1, task:rest and
// acq:fast. Components without exactly one "-" are ignored.
func FromFilename(path string) Metadata {
	out := make(Metadata)
	for _, kv := range strings.Split(filepath.Base(path), "_") {
		parts := strings.Split(kv, "-")
		if len(parts) != 2 {
			continue
		}
		out[parts[0]] = parts[1]
	}
	return out
}

// ForImage reads every sidecar that may apply to imagePath and merges them,
// least specific first, on top of the key-value pairs in the filename. Note
// that 'TaskName' comes from JSON whereas 'task' comes from the filename.
// Missing sidecars are expected and skipped.
func ForImage(root, imagePath string) (Metadata, error) {
	sidecarPath := SidecarPath(imagePath)
	merged := FromFilename(sidecarPath)

	for _, candidate := range PotentialSidecars(root, sidecarPath) {
		if !bids2nda.FileExists(candidate) {
			continue
		}

		params, err := ReadSidecar(candidate)
		if err != nil {
			return nil, err
		}
		for k, v := range params {
			merged[k] = v
		}
	}

	return merged, nil
}

// ReadSidecar decodes a single JSON sidecar. Its top level must be an object.
func ReadSidecar(path string) (Metadata, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	out := make(Metadata)
	if err := dec.Decode(&out); err != nil {
		return nil, &bids2nda.ParseError{File: path, Err: err}
	}

	// Only whitespace may follow the object
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			err = fmt.Errorf("extra data after the top-level object")
		}
		return nil, &bids2nda.ParseError{File: path, Err: err}
	}

	return out, nil
}

// Value returns the raw value under key.
func (m Metadata) Value(key string) (any, bool) {
	v, exists := m[key]
	return v, exists
}

// String renders the value under key for a CSV cell. Missing keys and JSON
// nulls are "".
func (m Metadata) String(key string) string {
	v, exists := m[key]
	if !exists {
		return ""
	}
	return Format(v)
}

// Path evaluates a JSONPath expression such as "$.global.const.SliceThickness"
// against the metadata and returns the first result.
func (m Metadata) Path(expr string) (any, bool) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, false
	}

	results := x.Get(map[string]any(m))
	if len(results) == 0 || results[0] == nil {
		return nil, false
	}

	return results[0], true
}

// Floats converts a JSON array of numbers to []float64.
func Floats(v any) ([]float64, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of numbers, got %T", v)
	}

	out := make([]float64, 0, len(arr))
	for _, item := range arr {
		var f float64
		var err error
		switch n := item.(type) {
		case json.Number:
			f, err = n.Float64()
		case float64:
			f = n
		case int64:
			f = float64(n)
		default:
			err = fmt.Errorf("expected a number, got %T", item)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}

	return out, nil
}

// Format renders a metadata value as text.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "True"
		}
		return "False"
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// JSON renders the metadata as indented JSON with sorted keys, as stored in
// the provenance archive.
func (m Metadata) JSON() ([]byte, error) {
	b, err := json.MarshalIndent(map[string]any(m), "", "    ")
	if err != nil {
		return nil, pfx.Err(err)
	}
	return b, nil
}
