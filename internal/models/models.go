package models

import (
	"time"

	"github.com/google/uuid"
)

// Status values for a person detection.
const (
	StatusSafe   = "safe"
	StatusUnsafe = "unsafe"
)

// StatusFor derives the status from the four PPE flags. Status is never
// stored independently of the flags.
func StatusFor(hasMask, hasGloves, hasLabcoat, hasGlasses bool) string {
	if hasMask && hasGloves && hasLabcoat && hasGlasses {
		return StatusSafe
	}
	return StatusUnsafe
}

// BBox is a pixel-space bounding box.
type BBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

type Video struct {
	ID         string    `json:"id"`
	VideoName  string    `json:"video_name"`
	Title      string    `json:"title"`
	UploadedBy string    `json:"uploaded_by,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func NewVideo(videoName, title, uploadedBy string) *Video {
	return &Video{
		ID:         uuid.New().String(),
		VideoName:  videoName,
		Title:      title,
		UploadedBy: uploadedBy,
		UploadedAt: time.Now().UTC(),
	}
}

// Person is one detected human in one analyzed frame.
type Person struct {
	ID          string    `json:"id"`
	VideoID     string    `json:"video_id,omitempty"`
	TrackID     string    `json:"track_id,omitempty"`
	FrameNumber int       `json:"frame_number"`
	HasMask     bool      `json:"has_mask"`
	HasGloves   bool      `json:"has_gloves"`
	HasLabcoat  bool      `json:"has_labcoat"`
	HasGlasses  bool      `json:"has_glasses"`
	InRedZone   bool      `json:"in_red_zone"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewPerson(videoID string, frameNumber int, hasMask, hasGloves, hasLabcoat, hasGlasses, inRedZone bool) *Person {
	return &Person{
		ID:          uuid.New().String(),
		VideoID:     videoID,
		FrameNumber: frameNumber,
		HasMask:     hasMask,
		HasGloves:   hasGloves,
		HasLabcoat:  hasLabcoat,
		HasGlasses:  hasGlasses,
		InRedZone:   inRedZone,
		Status:      StatusFor(hasMask, hasGloves, hasLabcoat, hasGlasses),
		CreatedAt:   time.Now().UTC(),
	}
}

// Missing returns the names of the PPE items this person is not wearing.
func (p *Person) Missing() []string {
	var items []string
	if !p.HasMask {
		items = append(items, "mask")
	}
	if !p.HasGloves {
		items = append(items, "gloves")
	}
	if !p.HasLabcoat {
		items = append(items, "labcoat")
	}
	if !p.HasGlasses {
		items = append(items, "glasses")
	}
	return items
}

const AlertTypePPEViolation = "ppe_violation"

type Alert struct {
	ID        string    `json:"id"`
	PersonID  string    `json:"person_id,omitempty"`
	AlertType string    `json:"alert_type"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func NewAlert(personID, alertType, reason string) *Alert {
	return &Alert{
		ID:        uuid.New().String(),
		PersonID:  personID,
		AlertType: alertType,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
}

type Spill struct {
	ID         string    `json:"id"`
	VideoID    string    `json:"video_id,omitempty"`
	FramePath  string    `json:"frame_path"`
	BBox       BBox      `json:"bbox"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewSpill(videoID, framePath string, bbox BBox, confidence float64) *Spill {
	return &Spill{
		ID:         uuid.New().String(),
		VideoID:    videoID,
		FramePath:  framePath,
		BBox:       bbox,
		Confidence: confidence,
		CreatedAt:  time.Now().UTC(),
	}
}

// Detection is the low-level per-box log used for confidence analytics.
type Detection struct {
	ID         string    `json:"id"`
	ClassName  string    `json:"class_name"`
	Confidence float64   `json:"confidence"`
	BBox       BBox      `json:"bbox"`
	FramePath  string    `json:"frame_path"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewDetection(className string, confidence float64, bbox BBox, framePath string) *Detection {
	return &Detection{
		ID:         uuid.New().String(),
		ClassName:  className,
		Confidence: confidence,
		BBox:       bbox,
		FramePath:  framePath,
		CreatedAt:  time.Now().UTC(),
	}
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewUser(username, email, passwordHash, role string) *User {
	if role == "" {
		role = "user"
	}
	return &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
}
