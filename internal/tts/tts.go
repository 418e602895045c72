// Package tts wraps the speech-synthesis capability used for voice
// alerts. Synthesis happens in an external service; playback goes through
// whatever player binary the host has.
package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// HTTPSynthesizer calls a speech endpoint and writes the returned audio
// to a local file.
type HTTPSynthesizer struct {
	baseURL    string
	voice      string
	voiceDir   string
	httpClient *http.Client
}

func NewHTTPSynthesizer(baseURL, voice, voiceDir string) (*HTTPSynthesizer, error) {
	if err := os.MkdirAll(voiceDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create voice directory: %w", err)
	}
	return &HTTPSynthesizer{
		baseURL:  baseURL,
		voice:    voice,
		voiceDir: voiceDir,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	q := url.Values{}
	q.Set("text", text)
	q.Set("voice", s.voice)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/synthesize?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call speech service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("speech service returned status %d", resp.StatusCode)
	}

	path := filepath.Join(s.voiceDir, fmt.Sprintf("alert_%d.mp3", time.Now().UnixMilli()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to save audio: %w", err)
	}
	return path, nil
}

// Announcer ties synthesis to playback. Speak is fire-and-forget: every
// failure is logged and dropped, an alert must never block the stream.
type Announcer struct {
	synth  Synthesizer
	player string
	log    *slog.Logger
}

func NewAnnouncer(synth Synthesizer, player string, log *slog.Logger) *Announcer {
	return &Announcer{synth: synth, player: player, log: log}
}

func (a *Announcer) Speak(text string) {
	if a == nil || a.synth == nil || text == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		path, err := a.synth.Synthesize(ctx, text)
		if err != nil {
			a.log.Error("voice synthesis failed", "error", err)
			return
		}

		args := []string{path}
		if a.player == "ffplay" {
			args = []string{"-nodisp", "-autoexit", "-loglevel", "quiet", path}
		}
		if err := exec.Command(a.player, args...).Run(); err != nil {
			a.log.Error("voice playback failed", "error", err)
		}
	}()
}
