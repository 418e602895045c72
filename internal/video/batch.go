package video

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nabahlab/nabah/internal/analyzer"
	"github.com/nabahlab/nabah/internal/database"
	"github.com/nabahlab/nabah/internal/detect"
	"github.com/nabahlab/nabah/internal/models"
)

// BatchService runs the offline analysis path: extract frames, analyze
// each, persist findings, re-encode an annotated copy. Unlike the live
// path it writes one alert row per violating frame, with no debouncing.
type BatchService struct {
	proc            *Processor
	detectorBaseURL string
	opts            analyzer.Options
	frameRate       int
	outputDir       string

	videos     *database.VideoRepository
	persons    *database.PersonRepository
	alerts     *database.AlertRepository
	spills     *database.SpillRepository
	detections *database.DetectionRepository

	log *slog.Logger
}

type BatchConfig struct {
	DetectorBaseURL string
	AnalyzerOptions analyzer.Options
	FrameRate       int
	OutputDir       string
}

func NewBatchService(
	proc *Processor,
	cfg BatchConfig,
	videos *database.VideoRepository,
	persons *database.PersonRepository,
	alerts *database.AlertRepository,
	spills *database.SpillRepository,
	detections *database.DetectionRepository,
	log *slog.Logger,
) *BatchService {
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 1
	}
	return &BatchService{
		proc:            proc,
		detectorBaseURL: cfg.DetectorBaseURL,
		opts:            cfg.AnalyzerOptions,
		frameRate:       cfg.FrameRate,
		outputDir:       cfg.OutputDir,
		videos:          videos,
		persons:         persons,
		alerts:          alerts,
		spills:          spills,
		detections:      detections,
		log:             log,
	}
}

type BatchResult struct {
	VideoID      string `json:"video_id,omitempty"`
	AnalysisType string `json:"analysis_type"`
	OutputName   string `json:"output_name"`
	FrameCount   int    `json:"frame_count"`
}

// Analyze processes one uploaded video file end to end.
func (s *BatchService) Analyze(ctx context.Context, srcPath, title, analysisType string) (*BatchResult, error) {
	set := detect.LoadByType(s.detectorBaseURL, analysisType)
	a := analyzer.New(set, s.opts)

	framesDir, err := os.MkdirTemp("", "nabah-frames-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(framesDir)

	frames, err := s.proc.ExtractFrames(srcPath, filepath.Join(framesDir, "in"), s.frameRate)
	if err != nil {
		return nil, fmt.Errorf("cannot open video: %w", err)
	}

	// Insert the video row up front. On failure the analysis proceeds and
	// downstream rows carry a null video reference.
	videoID := ""
	v := models.NewVideo(filepath.Base(srcPath), title, "")
	if err := s.videos.Insert(ctx, v); err != nil {
		s.log.Error("cannot insert video", "error", err)
	} else {
		videoID = v.ID
	}

	annotatedDir := filepath.Join(framesDir, "out")
	if err := os.MkdirAll(annotatedDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create annotated dir: %w", err)
	}

	for i, framePath := range frames {
		frameNumber := i + 1
		outPath := filepath.Join(annotatedDir, fmt.Sprintf("frame_%06d.jpg", frameNumber))

		img, err := LoadFrame(framePath)
		if err != nil {
			s.log.Error("skipping unreadable frame", "frame", frameNumber, "error", err)
			continue
		}

		result, err := a.Analyze(ctx, img, videoID, frameNumber)
		if err != nil {
			// Analysis failure leaves the frame unannotated and unrecorded.
			s.log.Error("frame analysis failed", "frame", frameNumber, "error", err)
			if werr := SaveFrame(outPath, img); werr != nil {
				s.log.Error("cannot write frame", "frame", frameNumber, "error", werr)
			}
			continue
		}

		s.persist(ctx, result)
		if err := SaveFrame(outPath, result.Annotated); err != nil {
			s.log.Error("cannot write annotated frame", "frame", frameNumber, "error", err)
		}
	}

	outputName := fmt.Sprintf("annotated_%s.mp4", time.Now().Format("20060102_150405"))
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := s.proc.Encode(annotatedDir, s.frameRate, filepath.Join(s.outputDir, outputName)); err != nil {
		return nil, err
	}

	return &BatchResult{
		VideoID:      videoID,
		AnalysisType: analysisType,
		OutputName:   outputName,
		FrameCount:   len(frames),
	}, nil
}

// persist writes one frame's records. Insert failures are logged and
// swallowed; analysis never rolls back.
func (s *BatchService) persist(ctx context.Context, result *analyzer.FrameResult) {
	for _, p := range result.Persons {
		if err := s.persons.Insert(ctx, p); err != nil {
			s.log.Error("cannot insert person", "error", err)
			continue
		}
		if p.Status == models.StatusUnsafe {
			reason := "missing " + strings.Join(p.Missing(), ", ")
			alert := models.NewAlert(p.ID, models.AlertTypePPEViolation, reason)
			if err := s.alerts.Insert(ctx, alert); err != nil {
				s.log.Error("cannot insert alert", "error", err)
			}
		}
	}
	for _, sp := range result.Spills {
		if err := s.spills.Insert(ctx, sp); err != nil {
			s.log.Error("cannot insert spill", "error", err)
		}
	}
	for _, d := range result.Detections {
		if err := s.detections.Insert(ctx, d); err != nil {
			s.log.Error("cannot insert detection", "error", err)
		}
	}
}
