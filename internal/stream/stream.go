// Package stream runs the live monitoring path: an exclusive analysis
// session over a frame source, broadcast to MJPEG viewers, with
// edge-triggered alerting so one continuous violation produces one alert.
package stream

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"log/slog"
	"strings"
	"sync"

	"github.com/nabahlab/nabah/internal/analyzer"
	"github.com/nabahlab/nabah/internal/database"
	"github.com/nabahlab/nabah/internal/detect"
	"github.com/nabahlab/nabah/internal/models"
	"github.com/nabahlab/nabah/internal/tts"
)

// FrameSource yields frames for a live session. Close must unblock a
// pending Next.
type FrameSource interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

type session struct {
	src     FrameSource
	a       *analyzer.Analyzer
	tracker *analyzer.AlertTracker
	videoID string
	cancel  context.CancelFunc
	done    chan struct{}
}

// Manager owns the single live session and its viewers. Start is
// idempotent while a session runs; Stop is safe to call repeatedly.
type Manager struct {
	opts analyzer.Options

	videos     *database.VideoRepository
	persons    *database.PersonRepository
	alerts     *database.AlertRepository
	spills     *database.SpillRepository
	detections *database.DetectionRepository
	announcer  *tts.Announcer
	log        *slog.Logger

	mu   sync.Mutex
	sess *session
	subs map[chan []byte]struct{}
}

func NewManager(
	opts analyzer.Options,
	videos *database.VideoRepository,
	persons *database.PersonRepository,
	alerts *database.AlertRepository,
	spills *database.SpillRepository,
	detections *database.DetectionRepository,
	announcer *tts.Announcer,
	log *slog.Logger,
) *Manager {
	return &Manager{
		opts:       opts,
		videos:     videos,
		persons:    persons,
		alerts:     alerts,
		spills:     spills,
		detections: detections,
		announcer:  announcer,
		log:        log,
		subs:       map[chan []byte]struct{}{},
	}
}

// Start begins a live session over src. If a session is already running
// the call is a no-op and src is closed.
func (m *Manager) Start(src FrameSource, set detect.Set) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess != nil {
		src.Close()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Each session gets its own video record so live rows reference it.
	// If the insert fails the session still runs, with an empty reference.
	video := models.NewVideo("External Camera", "Real-Time Monitoring", "")
	videoID := video.ID
	if err := m.videos.Insert(ctx, video); err != nil {
		m.log.Error("cannot insert session video record", "error", err)
		videoID = ""
	}

	s := &session{
		src:     src,
		a:       analyzer.New(set, m.opts),
		tracker: analyzer.NewAlertTracker(),
		videoID: videoID,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	m.sess = s
	go m.run(ctx, s)
	return nil
}

// Stop ends the running session, if any, and disconnects all viewers.
func (m *Manager) Stop() {
	m.mu.Lock()
	s := m.sess
	m.sess = nil
	m.mu.Unlock()

	if s != nil {
		s.cancel()
		s.src.Close()
		<-s.done
	}

	m.mu.Lock()
	for ch := range m.subs {
		close(ch)
		delete(m.subs, ch)
	}
	m.mu.Unlock()
}

func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess != nil
}

// Subscribe registers a viewer. The returned cancel func must be called
// when the viewer disconnects.
func (m *Manager) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[ch]; ok {
			delete(m.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// broadcast delivers a frame to every viewer, dropping it for viewers
// that have not consumed the previous one.
func (m *Manager) broadcast(frame []byte) {
	if frame == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- frame:
		default:
		}
	}
}

func (m *Manager) run(ctx context.Context, s *session) {
	defer close(s.done)
	defer m.clearSession(s)

	frameNumber := 0
	for {
		if ctx.Err() != nil {
			return
		}

		img, err := s.src.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				m.log.Info("frame source ended", "error", err)
			}
			return
		}
		frameNumber++

		result, err := s.a.Analyze(ctx, img, s.videoID, frameNumber)
		if err != nil {
			m.log.Error("live frame analysis failed", "frame", frameNumber, "error", err)
			m.broadcast(encodeJPEG(img))
			continue
		}

		m.persistLive(ctx, s, result)
		m.broadcast(encodeJPEG(result.Annotated))
	}
}

// persistLive writes one live frame's records. Alerts are debounced by
// the session tracker: only the safe-to-unsafe transition produces an
// alert row and a voice announcement.
func (m *Manager) persistLive(ctx context.Context, s *session, result *analyzer.FrameResult) {
	var lastViolator *models.Person
	for _, p := range result.Persons {
		if err := m.persons.Insert(ctx, p); err != nil {
			m.log.Error("cannot insert person", "error", err)
			continue
		}
		if p.Status == models.StatusUnsafe {
			lastViolator = p
		}
	}
	for _, sp := range result.Spills {
		if err := m.spills.Insert(ctx, sp); err != nil {
			m.log.Error("cannot insert spill", "error", err)
		}
	}
	for _, d := range result.Detections {
		if err := m.detections.Insert(ctx, d); err != nil {
			m.log.Error("cannot insert detection", "error", err)
		}
	}

	if s.tracker.Observe(result.UnsafeDetected) {
		personID := ""
		if lastViolator != nil {
			personID = lastViolator.ID
		}
		reason := "missing " + strings.Join(result.MissingItems, ", ")
		alert := models.NewAlert(personID, models.AlertTypePPEViolation, reason)
		if err := m.alerts.Insert(ctx, alert); err != nil {
			m.log.Error("cannot insert alert", "error", err)
		}
		m.announcer.Speak(analyzer.VoiceAlertText(result.MissingItems))
	}
}

// clearSession drops the session reference when the run loop exits on
// its own, so a new Start is possible without an explicit Stop.
func (m *Manager) clearSession(s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == s {
		m.sess = nil
	}
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil
	}
	return buf.Bytes()
}
