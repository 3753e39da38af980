// Package sidecar resolves the BIDS JSON metadata that applies to an image
// file. BIDS lets a key be defined at the dataset, subject, session or file
// level; the more specific definition wins.
package sidecar

import (
	"path/filepath"
	"strings"
)

// PotentialSidecars uses a fully specified sidecar path to list every sidecar
// that may hold metadata relevant to it, in increasing order of specificity.
// For bids/sub-a/ses-1/func/sub-a_ses-1_task-rest_acq-fast_bold.json that is
//
//	bids/task-rest_acq-fast_bold.json
//	bids/sub-a/sub-a_task-rest_acq-fast_bold.json
//	bids/sub-a/ses-1/sub-a_ses-1_task-rest_acq-fast_bold.json
//	bids/sub-a/ses-1/func/sub-a_ses-1_task-rest_acq-fast_bold.json
//
// run-* components never appear in inherited sidecars. Whether the files
// exist is not checked. The last element is always sidecarPath itself.
func PotentialSidecars(root, sidecarPath string) []string {
	var sub, ses string
	var topLevel, subjectLevel, sessionLevel []string

	for _, component := range strings.Split(filepath.Base(sidecarPath), "_") {
		switch {
		case strings.HasPrefix(component, "run-"):
			continue
		case strings.HasPrefix(component, "ses-"):
			ses = component
			sessionLevel = append(sessionLevel, component)
		case strings.HasPrefix(component, "sub-"):
			sub = component
			sessionLevel = append(sessionLevel, component)
			subjectLevel = append(subjectLevel, component)
		default:
			// task, acq, echo, suffix, etc. belong at every level
			sessionLevel = append(sessionLevel, component)
			subjectLevel = append(subjectLevel, component)
			topLevel = append(topLevel, component)
		}
	}

	out := []string{filepath.Join(root, strings.Join(topLevel, "_"))}

	if sub != "" {
		out = append(out, filepath.Join(root, sub, strings.Join(subjectLevel, "_")))

		if ses != "" {
			out = append(out, filepath.Join(root, sub, ses, strings.Join(sessionLevel, "_")))
		}
	}

	return append(out, sidecarPath)
}
