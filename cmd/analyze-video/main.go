// Command analyze-video runs the offline analysis pipeline over a single
// video file, without going through the HTTP server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/nabahlab/nabah/internal/analyzer"
	"github.com/nabahlab/nabah/internal/config"
	"github.com/nabahlab/nabah/internal/database"
	"github.com/nabahlab/nabah/internal/logging"
	"github.com/nabahlab/nabah/internal/video"
)

func main() {
	input := flag.String("input", "", "path to the video file")
	title := flag.String("title", "", "video title (defaults to the filename)")
	analysisType := flag.String("type", "ppe", "analysis type: ppe, spill or both")
	flag.Parse()

	log := logging.New(slog.LevelInfo)

	if *input == "" {
		log.Error("missing -input")
		flag.Usage()
		os.Exit(2)
	}
	if *title == "" {
		*title = *input
	}

	cfg := config.Load()

	db, err := database.NewDB(database.Config{
		Type:       cfg.DB.Type,
		Host:       cfg.DB.Host,
		Port:       cfg.DB.Port,
		User:       cfg.DB.User,
		Password:   cfg.DB.Password,
		Name:       cfg.DB.Name,
		SQLitePath: cfg.DB.SQLitePath,
	})
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	proc, err := video.NewProcessor()
	if err != nil {
		log.Error("ffmpeg unavailable", "error", err)
		os.Exit(1)
	}

	batch := video.NewBatchService(proc, video.BatchConfig{
		DetectorBaseURL: cfg.DetectorBaseURL,
		AnalyzerOptions: analyzer.Options{
			PersonThreshold: cfg.PersonThreshold,
			SpillThreshold:  cfg.SpillThreshold,
			PersonClassID:   cfg.PersonClassID,
		},
		FrameRate: cfg.FrameInterval,
		OutputDir: cfg.OutputDir,
	},
		database.NewVideoRepository(db),
		database.NewPersonRepository(db),
		database.NewAlertRepository(db),
		database.NewSpillRepository(db),
		database.NewDetectionRepository(db),
		log)

	result, err := batch.Analyze(context.Background(), *input, *title, *analysisType)
	if err != nil {
		log.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	log.Info("analysis complete",
		"video_id", result.VideoID,
		"frames", result.FrameCount,
		"output", result.OutputName)
}
