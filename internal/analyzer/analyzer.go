// Package analyzer turns detector output for a single frame into
// compliance decisions, geofencing and alert state.
package analyzer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/nabahlab/nabah/internal/detect"
	"github.com/nabahlab/nabah/internal/models"
)

var (
	colorSafe   = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	colorUnsafe = color.RGBA{R: 220, G: 0, B: 0, A: 255}
)

type Options struct {
	PersonThreshold float64
	SpillThreshold  float64
	PersonClassID   int
}

func DefaultOptions() Options {
	return Options{
		PersonThreshold: 0.5,
		SpillThreshold:  0.6,
		PersonClassID:   0,
	}
}

type Analyzer struct {
	set  detect.Set
	opts Options
}

func New(set detect.Set, opts Options) *Analyzer {
	if opts.PersonThreshold == 0 {
		opts.PersonThreshold = 0.5
	}
	if opts.SpillThreshold == 0 {
		opts.SpillThreshold = 0.6
	}
	return &Analyzer{set: set, opts: opts}
}

// FrameResult is everything one analyzed frame produced. Persisting the
// records is the caller's concern; a failed insert never rewinds analysis.
type FrameResult struct {
	Annotated      image.Image
	Persons        []*models.Person
	Spills         []*models.Spill
	Detections     []*models.Detection
	UnsafeDetected bool
	// MissingItems is the missing-PPE list of the last violator processed
	// in the frame, the one a voice alert names.
	MissingItems []string
}

// RedZone is the geofenced rectangle: the lower-right 30%x30% of a frame.
func RedZone(w, h int) image.Rectangle {
	return image.Rect(int(float64(w)*0.7), int(float64(h)*0.7), w, h)
}

// InRedZone reports whether a box center falls inside the geofence.
func InRedZone(cx, cy, w, h int) bool {
	return float64(cx) >= float64(w)*0.7 && float64(cy) >= float64(h)*0.7
}

// Analyze runs the configured detectors over one frame. Any detector
// failure aborts the frame: the original image comes back unannotated and
// no records are produced.
func (a *Analyzer) Analyze(ctx context.Context, frame image.Image, videoID string, frameNumber int) (*FrameResult, error) {
	bounds := frame.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	annotated := cloneRGBA(frame)
	result := &FrameResult{Annotated: annotated}
	framePath := fmt.Sprintf("frame_%06d", frameNumber)

	if person, ok := a.set[detect.RolePerson]; ok {
		boxes, err := person.Detect(ctx, frame)
		if err != nil {
			return &FrameResult{Annotated: frame}, fmt.Errorf("person detection failed: %w", err)
		}

		for _, box := range boxes {
			if box.ClassID != a.opts.PersonClassID || box.Confidence <= a.opts.PersonThreshold {
				continue
			}

			rect := image.Rect(box.X1, box.Y1, box.X2, box.Y2).Intersect(bounds)
			if rect.Empty() {
				// Degenerate box, nothing to crop.
				continue
			}
			crop := annotated.SubImage(rect)

			flags := make(map[string]bool, 4)
			for _, role := range []string{detect.RoleMask, detect.RoleGloves, detect.RoleLabcoat, detect.RoleGlasses} {
				det, ok := a.set[role]
				if !ok {
					flags[role] = false
					continue
				}
				found, err := det.Detect(ctx, crop)
				if err != nil {
					return &FrameResult{Annotated: frame}, fmt.Errorf("%s detection failed: %w", role, err)
				}
				// Presence is "at least one box"; the PPE detector's own
				// confidence is not thresholded.
				flags[role] = len(found) > 0
			}

			cx := (rect.Min.X + rect.Max.X) / 2
			cy := (rect.Min.Y + rect.Max.Y) / 2
			inRed := InRedZone(cx, cy, w, h)

			p := models.NewPerson(videoID, frameNumber,
				flags[detect.RoleMask], flags[detect.RoleGloves],
				flags[detect.RoleLabcoat], flags[detect.RoleGlasses], inRed)
			result.Persons = append(result.Persons, p)
			result.Detections = append(result.Detections, models.NewDetection(
				"person", box.Confidence,
				models.BBox{X1: rect.Min.X, Y1: rect.Min.Y, X2: rect.Max.X, Y2: rect.Max.Y},
				framePath))

			c := colorSafe
			if p.Status == models.StatusUnsafe {
				c = colorUnsafe
				result.UnsafeDetected = true
				result.MissingItems = p.Missing()
			}
			drawRect(annotated, rect, c, 2)
			drawLabel(annotated, rect.Min.X, max(15, rect.Min.Y-5), strings.ToUpper(p.Status), c)
		}
	}

	if liquid, ok := a.set[detect.RoleLiquid]; ok {
		boxes, err := liquid.Detect(ctx, frame)
		if err != nil {
			return &FrameResult{Annotated: frame}, fmt.Errorf("liquid detection failed: %w", err)
		}

		for _, box := range boxes {
			if box.Confidence <= a.opts.SpillThreshold {
				continue
			}
			rect := image.Rect(box.X1, box.Y1, box.X2, box.Y2).Intersect(bounds)
			bbox := models.BBox{X1: rect.Min.X, Y1: rect.Min.Y, X2: rect.Max.X, Y2: rect.Max.Y}

			result.Spills = append(result.Spills, models.NewSpill(videoID, framePath, bbox, box.Confidence))
			result.Detections = append(result.Detections, models.NewDetection("liquid", box.Confidence, bbox, framePath))

			drawRect(annotated, rect, colorUnsafe, 2)
			drawLabel(annotated, rect.Min.X, max(15, rect.Min.Y-7), "Spill", colorUnsafe)
		}
	}

	drawRect(annotated, RedZone(w, h), colorUnsafe, 2)

	return result, nil
}

func cloneRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}
