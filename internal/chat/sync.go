package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nabahlab/nabah/internal/database"
	"github.com/nabahlab/nabah/internal/models"
)

// EmbedPassage embeds stored text for indexing. e5-family models expect
// a different prefix for passages than for queries.
func (e *HTTPEmbedder) EmbedPassage(ctx context.Context, text string) ([]float32, error) {
	body, err := marshalEmbedRequest(e.model, "passage: "+text)
	if err != nil {
		return nil, err
	}
	return e.post(ctx, body)
}

// Syncer refreshes the documents table from the relational rows so the
// retrieval stage has text to search.
type Syncer struct {
	embedder interface {
		EmbedPassage(ctx context.Context, text string) ([]float32, error)
	}
	docs *database.DocumentRepository

	persons *database.PersonRepository
	alerts  *database.AlertRepository
	spills  *database.SpillRepository

	log *slog.Logger
}

func NewSyncer(
	embedder *HTTPEmbedder,
	docs *database.DocumentRepository,
	persons *database.PersonRepository,
	alerts *database.AlertRepository,
	spills *database.SpillRepository,
	log *slog.Logger,
) *Syncer {
	return &Syncer{
		embedder: embedder,
		docs:     docs,
		persons:  persons,
		alerts:   alerts,
		spills:   spills,
		log:      log,
	}
}

// Sync embeds and indexes up to limit recent rows per table. Individual
// row failures are logged and skipped.
func (s *Syncer) Sync(ctx context.Context, limit int) (int, error) {
	indexed := 0

	persons, err := s.persons.List(ctx, limit)
	if err != nil {
		return indexed, fmt.Errorf("failed to load persons: %w", err)
	}
	for i := range persons {
		if s.index(ctx, "persons", PersonText(&persons[i])) {
			indexed++
		}
	}

	alerts, err := s.alerts.List(ctx, limit)
	if err != nil {
		return indexed, fmt.Errorf("failed to load alerts: %w", err)
	}
	for i := range alerts {
		if s.index(ctx, "alerts", AlertText(&alerts[i])) {
			indexed++
		}
	}

	spills, err := s.spills.List(ctx, limit)
	if err != nil {
		return indexed, fmt.Errorf("failed to load spills: %w", err)
	}
	for i := range spills {
		if s.index(ctx, "spills", SpillText(&spills[i])) {
			indexed++
		}
	}

	return indexed, nil
}

func (s *Syncer) index(ctx context.Context, table, text string) bool {
	vec, err := s.embedder.EmbedPassage(ctx, text)
	if err != nil {
		s.log.Error("cannot embed row", "table", table, "error", err)
		return false
	}
	if err := s.docs.Insert(ctx, table, text, vec); err != nil {
		s.log.Error("cannot index row", "table", table, "error", err)
		return false
	}
	return true
}

const textTimeFormat = "2006-01-02 15:04 UTC"

// PersonText renders a person row as a retrieval passage.
func PersonText(p *models.Person) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Person in frame %d: status %s", p.FrameNumber, p.Status)
	if missing := p.Missing(); len(missing) > 0 {
		fmt.Fprintf(&b, ", missing %s", strings.Join(missing, ", "))
	}
	if p.InRedZone {
		b.WriteString(", inside the red zone")
	}
	fmt.Fprintf(&b, ", at %s.", p.CreatedAt.UTC().Format(textTimeFormat))
	return b.String()
}

func AlertText(a *models.Alert) string {
	return fmt.Sprintf("Alert (%s): %s, at %s.",
		a.AlertType, a.Reason, a.CreatedAt.UTC().Format(textTimeFormat))
}

func SpillText(sp *models.Spill) string {
	return fmt.Sprintf("Liquid spill detected with confidence %.2f, at %s.",
		sp.Confidence, sp.CreatedAt.UTC().Format(textTimeFormat))
}
