package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/nabahlab/nabah/internal/analyzer"
	"github.com/nabahlab/nabah/internal/api"
	"github.com/nabahlab/nabah/internal/chat"
	"github.com/nabahlab/nabah/internal/config"
	"github.com/nabahlab/nabah/internal/database"
	"github.com/nabahlab/nabah/internal/logging"
	"github.com/nabahlab/nabah/internal/stats"
	"github.com/nabahlab/nabah/internal/storage"
	"github.com/nabahlab/nabah/internal/stream"
	"github.com/nabahlab/nabah/internal/tts"
	"github.com/nabahlab/nabah/internal/video"
)

func main() {
	cfg := config.Load()
	log := logging.New(slog.LevelInfo)

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

	if err := db.RunMigrations("./migrations"); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	local, err := storage.NewLocal(cfg.UploadDir, cfg.OutputDir, cfg.MaxUploadSize)
	if err != nil {
		log.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}

	users := database.NewUserRepository(db)
	videos := database.NewVideoRepository(db)
	persons := database.NewPersonRepository(db)
	alerts := database.NewAlertRepository(db)
	spills := database.NewSpillRepository(db)
	detections := database.NewDetectionRepository(db)
	documents := database.NewDocumentRepository(db)

	opts := analyzer.Options{
		PersonThreshold: cfg.PersonThreshold,
		SpillThreshold:  cfg.SpillThreshold,
		PersonClassID:   cfg.PersonClassID,
	}

	var batch *video.BatchService
	proc, err := video.NewProcessor()
	if err != nil {
		log.Warn("video analysis disabled", "error", err)
	} else {
		batch = video.NewBatchService(proc, video.BatchConfig{
			DetectorBaseURL: cfg.DetectorBaseURL,
			AnalyzerOptions: opts,
			FrameRate:       cfg.FrameInterval,
			OutputDir:       cfg.OutputDir,
		}, videos, persons, alerts, spills, detections, log)
	}

	var announcer *tts.Announcer
	if cfg.TTSBaseURL != "" {
		synth, err := tts.NewHTTPSynthesizer(cfg.TTSBaseURL, cfg.TTSVoice, cfg.VoiceDir)
		if err != nil {
			log.Warn("voice alerts disabled", "error", err)
		} else {
			announcer = tts.NewAnnouncer(synth, cfg.PlayerCommand, log)
		}
	}

	manager := stream.NewManager(opts, videos, persons, alerts, spills, detections, announcer, log)

	embedder := chat.NewHTTPEmbedder(cfg.EmbeddingBaseURL, cfg.EmbeddingModel)
	dispatcher := chat.NewDispatcher(
		chat.NewStore(persons, alerts, spills, detections, videos),
		chat.NewVectorRetriever(embedder, documents),
		chat.NewOpenRouterClient(cfg.OpenRouterAPIKey, cfg.LLMModel),
		log,
	)

	app := &api.App{
		Log:             log,
		DB:              db,
		Storage:         local,
		Users:           users,
		Videos:          videos,
		Persons:         persons,
		Alerts:          alerts,
		Spills:          spills,
		Detections:      detections,
		Batch:           batch,
		Stats:           stats.NewService(persons, alerts, spills, detections, videos),
		Chat:            dispatcher,
		Stream:          manager,
		DetectorBaseURL: cfg.DetectorBaseURL,
		CameraDevice:    cfg.CameraDevice,
		CameraFPS:       cfg.CameraFPS,
		MaxUploadSize:   cfg.MaxUploadSize,
	}

	router := api.NewRouter(app)

	log.Info("server starting",
		"port", cfg.Port,
		"db_type", cfg.DB.Type,
		"detector", cfg.DetectorBaseURL,
		"upload_dir", cfg.UploadDir)

	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
