// Package config centralizes runtime settings. Everything is overridable
// through environment variables (NABAH_ prefix) with working defaults for
// local development.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string
	UploadDir     string
	OutputDir     string
	VoiceDir      string
	MaxUploadSize int64
	SessionSecret string

	DB DBConfig

	// Detector inference endpoint and thresholds.
	DetectorBaseURL  string
	PersonThreshold  float64
	SpillThreshold   float64
	PersonClassID    int
	FrameInterval    int

	// Live capture.
	CameraDevice string
	CameraFPS    int

	// External language/speech services.
	OpenRouterAPIKey string
	LLMModel         string
	EmbeddingBaseURL string
	EmbeddingModel   string
	TTSBaseURL       string
	TTSVoice         string
	PlayerCommand    string
}

type DBConfig struct {
	Type       string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SQLitePath string
}

// Load reads settings from the environment. It never fails: missing keys
// fall back to defaults, matching how the original deployment tolerated a
// partial .env file.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix("NABAH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("upload_dir", "./uploads")
	v.SetDefault("output_dir", "./outputs")
	v.SetDefault("voice_dir", "./voices")
	v.SetDefault("max_upload_size", int64(104857600))
	v.SetDefault("session_secret", "")

	v.SetDefault("db.type", "sqlite")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "nabah")
	v.SetDefault("db.password", "nabah_dev")
	v.SetDefault("db.name", "nabah")
	v.SetDefault("db.sqlite_path", "./nabah.db")

	v.SetDefault("detector_base_url", "http://localhost:8090")
	v.SetDefault("person_threshold", 0.5)
	v.SetDefault("spill_threshold", 0.6)
	v.SetDefault("person_class_id", 0)
	v.SetDefault("frame_interval", 1)
	v.SetDefault("camera_device", "/dev/video0")
	v.SetDefault("camera_fps", 10)

	v.SetDefault("openrouter_api_key", "")
	v.SetDefault("llm_model", "mistralai/mistral-7b-instruct")
	v.SetDefault("embedding_base_url", "http://localhost:8091")
	v.SetDefault("embedding_model", "intfloat/multilingual-e5-base")
	v.SetDefault("tts_base_url", "")
	v.SetDefault("tts_voice", "ar-SA-ZariyahNeural")
	v.SetDefault("player_command", "ffplay")

	return &Config{
		Port:          v.GetString("port"),
		UploadDir:     v.GetString("upload_dir"),
		OutputDir:     v.GetString("output_dir"),
		VoiceDir:      v.GetString("voice_dir"),
		MaxUploadSize: v.GetInt64("max_upload_size"),
		SessionSecret: v.GetString("session_secret"),
		DB: DBConfig{
			Type:       v.GetString("db.type"),
			Host:       v.GetString("db.host"),
			Port:       v.GetInt("db.port"),
			User:       v.GetString("db.user"),
			Password:   v.GetString("db.password"),
			Name:       v.GetString("db.name"),
			SQLitePath: v.GetString("db.sqlite_path"),
		},
		DetectorBaseURL:  v.GetString("detector_base_url"),
		PersonThreshold:  v.GetFloat64("person_threshold"),
		SpillThreshold:   v.GetFloat64("spill_threshold"),
		PersonClassID:    v.GetInt("person_class_id"),
		FrameInterval:    v.GetInt("frame_interval"),
		CameraDevice:     v.GetString("camera_device"),
		CameraFPS:        v.GetInt("camera_fps"),
		OpenRouterAPIKey: v.GetString("openrouter_api_key"),
		LLMModel:         v.GetString("llm_model"),
		EmbeddingBaseURL: v.GetString("embedding_base_url"),
		EmbeddingModel:   v.GetString("embedding_model"),
		TTSBaseURL:       v.GetString("tts_base_url"),
		TTSVoice:         v.GetString("tts_voice"),
		PlayerCommand:    v.GetString("player_command"),
	}
}
