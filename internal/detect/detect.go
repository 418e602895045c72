// Package detect wraps the object-detection capability. Models run in an
// external inference server; this package only knows how to send an image
// and read back labeled boxes.
package detect

import (
	"context"
	"image"
)

// Box is one labeled detection.
type Box struct {
	ClassID    int     `json:"class_id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
}

type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Box, error)
}

// Model roles used by the analyzer.
const (
	RolePerson  = "person"
	RoleMask    = "mask"
	RoleGloves  = "gloves"
	RoleLabcoat = "labcoat"
	RoleGlasses = "glasses"
	RoleLiquid  = "liquid"
)

// Set holds the detectors loaded for one analysis run, keyed by role.
// Absent roles mean that capability is not configured.
type Set map[string]Detector

// PPERoles are the detectors a PPE analysis needs.
var PPERoles = []string{RolePerson, RoleMask, RoleGloves, RoleLabcoat, RoleGlasses}

// LoadByType builds the detector set for an analysis type. Unrecognized
// types fall back to PPE, matching the upload form's behavior.
func LoadByType(baseURL, analysisType string) Set {
	set := Set{}

	switch analysisType {
	case "spill":
		set[RoleLiquid] = NewHTTPDetector(baseURL, RoleLiquid)
	case "both":
		for _, role := range PPERoles {
			set[role] = NewHTTPDetector(baseURL, role)
		}
		set[RoleLiquid] = NewHTTPDetector(baseURL, RoleLiquid)
	default: // "ppe" and anything unrecognized
		for _, role := range PPERoles {
			set[role] = NewHTTPDetector(baseURL, role)
		}
	}
	return set
}
