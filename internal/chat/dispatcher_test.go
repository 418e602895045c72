package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/nabahlab/nabah/internal/database"
)

type fakeStore struct {
	persons, alerts, spills, detections, videos, ppe int

	personsToday, personsYesterday int
	alertsToday, alertsYesterday   int
	spillsToday                    int

	lastStart, lastEnd time.Time
}

func (f *fakeStore) CountPersons(ctx context.Context) (int, error) { return f.persons, nil }

func (f *fakeStore) CountPersonsBetween(ctx context.Context, start, end time.Time) (int, error) {
	f.lastStart, f.lastEnd = start, end
	if start.Day() == end.Day() && start.Equal(startOfDay(end)) {
		if sameDay(start, testNow()) {
			return f.personsToday, nil
		}
		return f.personsYesterday, nil
	}
	return f.persons, nil
}

func (f *fakeStore) CountAlerts(ctx context.Context) (int, error) { return f.alerts, nil }

func (f *fakeStore) CountAlertsBetween(ctx context.Context, start, end time.Time) (int, error) {
	f.lastStart, f.lastEnd = start, end
	if sameDay(start, testNow()) {
		return f.alertsToday, nil
	}
	if sameDay(start, testNow().AddDate(0, 0, -1)) {
		return f.alertsYesterday, nil
	}
	return f.alerts, nil
}

func (f *fakeStore) CountPPEViolations(ctx context.Context) (int, error) { return f.ppe, nil }

func (f *fakeStore) CountSpills(ctx context.Context) (int, error) { return f.spills, nil }

func (f *fakeStore) CountSpillsBetween(ctx context.Context, start, end time.Time) (int, error) {
	f.lastStart, f.lastEnd = start, end
	return f.spillsToday, nil
}

func (f *fakeStore) CountDetections(ctx context.Context) (int, error) { return f.detections, nil }
func (f *fakeStore) CountVideos(ctx context.Context) (int, error)     { return f.videos, nil }

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func testNow() time.Time {
	return time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
}

type fakeRetriever struct {
	snippets []database.Snippet
	err      error
	lastQ    string
}

func (f *fakeRetriever) Search(ctx context.Context, question string, limit int) ([]database.Snippet, error) {
	f.lastQ = question
	return f.snippets, f.err
}

type fakeLLM struct {
	answer   string
	err      error
	lastMsgs []Message
}

func (f *fakeLLM) Complete(ctx context.Context, messages []Message) (string, error) {
	f.lastMsgs = messages
	return f.answer, f.err
}

func newTestDispatcher(store Store, retriever Retriever, llm LLM) *Dispatcher {
	d := NewDispatcher(store, retriever, llm, slog.New(slog.NewTextHandler(io.Discard, nil)))
	d.now = testNow
	return d
}

func TestAnswer_OffTopicEnglish(t *testing.T) {
	d := newTestDispatcher(&fakeStore{}, &fakeRetriever{}, &fakeLLM{})

	got, err := d.Answer(context.Background(), "What is the weather like in Riyadh?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !strings.Contains(got, "I can only answer questions about lab safety") {
		t.Errorf("Expected English refusal, got %q", got)
	}
}

func TestAnswer_OffTopicArabic(t *testing.T) {
	d := newTestDispatcher(&fakeStore{}, &fakeRetriever{}, &fakeLLM{})

	got, err := d.Answer(context.Background(), "ما هو الطقس غدًا؟")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !strings.Contains(got, "يمكنني فقط الإجابة") {
		t.Errorf("Expected Arabic refusal, got %q", got)
	}
}

func TestAnswer_CountSpillsToday(t *testing.T) {
	store := &fakeStore{spillsToday: 3}
	d := newTestDispatcher(store, &fakeRetriever{}, &fakeLLM{})

	got, err := d.Answer(context.Background(), "How many spills were there today?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !strings.Contains(got, "3 spills") || !strings.Contains(got, "today") {
		t.Errorf("Unexpected count answer: %q", got)
	}

	wantStart := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if !store.lastStart.Equal(wantStart) {
		t.Errorf("Window start = %v, want %v", store.lastStart, wantStart)
	}
	if !sameDay(store.lastEnd, wantStart) || store.lastEnd.Hour() != 23 {
		t.Errorf("Window end = %v, want end of same UTC day", store.lastEnd)
	}
}

func TestAnswer_CountSpillsArabic(t *testing.T) {
	store := &fakeStore{spillsToday: 2}
	d := newTestDispatcher(store, &fakeRetriever{}, &fakeLLM{})

	got, err := d.Answer(context.Background(), "كم عدد التسربات اليوم؟")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !strings.Contains(got, "2") || !strings.Contains(got, "تسربات") || !strings.Contains(got, "اليوم") {
		t.Errorf("Unexpected Arabic count answer: %q", got)
	}
}

func TestAnswer_CountPPEViolations(t *testing.T) {
	d := newTestDispatcher(&fakeStore{ppe: 12, alerts: 40}, &fakeRetriever{}, &fakeLLM{})

	got, err := d.Answer(context.Background(), "How many PPE violations are in the database?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !strings.Contains(got, "12") || !strings.Contains(got, "PPE violation") {
		t.Errorf("Expected PPE violation count, got %q", got)
	}
}

func TestAnswer_CountWithoutSubject(t *testing.T) {
	d := newTestDispatcher(&fakeStore{}, &fakeRetriever{}, &fakeLLM{})

	got, err := d.Answer(context.Background(), "How many staff work in the lab?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !strings.Contains(got, "don't have enough data") {
		t.Errorf("Expected not-enough-data answer, got %q", got)
	}
}

func TestAnswer_CountWeekAnchorsAtMonday(t *testing.T) {
	store := &fakeStore{persons: 9}
	d := newTestDispatcher(store, &fakeRetriever{}, &fakeLLM{})

	// testNow is Tuesday 2026-03-10; the week window starts Monday 03-09.
	got, err := d.Answer(context.Background(), "How many persons were recorded this week?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !strings.Contains(got, "9 persons") || !strings.Contains(got, "this week") {
		t.Errorf("Unexpected week count answer: %q", got)
	}

	wantStart := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if !store.lastStart.Equal(wantStart) {
		t.Errorf("Week window start = %v, want %v", store.lastStart, wantStart)
	}
	if !sameDay(store.lastEnd, testNow()) || store.lastEnd.Hour() != 23 {
		t.Errorf("Week window end = %v, want end of current UTC day", store.lastEnd)
	}
}

func TestAnswer_CountAlertsYesterdayArabicSynonym(t *testing.T) {
	store := &fakeStore{alertsYesterday: 4}
	d := newTestDispatcher(store, &fakeRetriever{}, &fakeLLM{})

	got, err := d.Answer(context.Background(), "كم عدد التنبيهات البارحة؟")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !strings.Contains(got, "4") || !strings.Contains(got, "تنبيهات") || !strings.Contains(got, "أمس") {
		t.Errorf("Unexpected Arabic yesterday answer: %q", got)
	}
}

func TestAnswer_TrendMore(t *testing.T) {
	store := &fakeStore{alertsToday: 5, alertsYesterday: 3}
	d := newTestDispatcher(store, &fakeRetriever{}, &fakeLLM{})

	got, err := d.Answer(context.Background(), "Were there more alerts today than yesterday?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !strings.Contains(got, "2 more alerts today than yesterday (5 vs 3)") {
		t.Errorf("Unexpected trend answer: %q", got)
	}
}

func TestAnswer_TrendFewer(t *testing.T) {
	store := &fakeStore{alertsToday: 1, alertsYesterday: 4}
	d := newTestDispatcher(store, &fakeRetriever{}, &fakeLLM{})

	got, err := d.Answer(context.Background(), "Did we get fewer alerts today compared to yesterday?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !strings.Contains(got, "3 fewer alerts today than yesterday (1 vs 4)") {
		t.Errorf("Unexpected trend answer: %q", got)
	}
}

func TestAnswer_TrendSame(t *testing.T) {
	store := &fakeStore{alertsToday: 2, alertsYesterday: 2}
	d := newTestDispatcher(store, &fakeRetriever{}, &fakeLLM{})

	got, err := d.Answer(context.Background(), "Were there more alerts today than yesterday?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !strings.Contains(got, "the same (2)") {
		t.Errorf("Unexpected trend answer: %q", got)
	}
}

func TestAnswer_TodayQuestionWithoutComparisonWording(t *testing.T) {
	store := &fakeStore{alertsToday: 7}
	retriever := &fakeRetriever{}
	d := newTestDispatcher(store, retriever, &fakeLLM{})

	// A time keyword plus a subject is enough; the question needs no
	// more/fewer wording to get today's count.
	got, err := d.Answer(context.Background(), "Were there any alerts today?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !strings.Contains(got, "7 alerts") || !strings.Contains(got, "today") {
		t.Errorf("Expected today's alert count, got %q", got)
	}
	if retriever.lastQ != "" {
		t.Errorf("Retriever should not run for a dated subject question, searched %q", retriever.lastQ)
	}
}

func TestAnswer_RetrievalReachesLLM(t *testing.T) {
	retriever := &fakeRetriever{snippets: []database.Snippet{
		{TableName: "alerts", Text: "PPE violation: missing mask", Similarity: 0.91},
	}}
	llm := &fakeLLM{answer: "There was one violation involving a missing mask."}
	d := newTestDispatcher(&fakeStore{}, retriever, llm)

	got, err := d.Answer(context.Background(), "What safety incidents happened in the lab recently?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if got != llm.answer {
		t.Errorf("Expected LLM answer, got %q", got)
	}
	if len(llm.lastMsgs) != 2 || llm.lastMsgs[0].Role != "system" {
		t.Fatalf("Unexpected prompt shape: %+v", llm.lastMsgs)
	}
	if !strings.Contains(llm.lastMsgs[1].Content, "- [alerts] PPE violation: missing mask") {
		t.Errorf("Context lines missing from prompt: %q", llm.lastMsgs[1].Content)
	}
}

func TestAnswer_RetrievalEmpty(t *testing.T) {
	d := newTestDispatcher(&fakeStore{}, &fakeRetriever{}, &fakeLLM{})

	got, err := d.Answer(context.Background(), "Tell me about spill handling in the lab.")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !strings.Contains(got, "don't have enough data") {
		t.Errorf("Expected not-enough-data answer, got %q", got)
	}
}

func TestAnswer_LLMFailure(t *testing.T) {
	retriever := &fakeRetriever{snippets: []database.Snippet{{TableName: "spills", Text: "spill at 0.8"}}}
	llm := &fakeLLM{err: errors.New("upstream 502")}
	d := newTestDispatcher(&fakeStore{}, retriever, llm)

	got, err := d.Answer(context.Background(), "Summarize recent lab spills for me please.")
	if err == nil {
		t.Fatal("Expected an error from LLM failure")
	}

	var chatErr *Error
	if !errors.As(err, &chatErr) || chatErr.Kind != ErrKindLLM {
		t.Errorf("Expected llm error kind, got %v", err)
	}
	if !strings.Contains(got, "unavailable right now") {
		t.Errorf("Expected fallback text, got %q", got)
	}
}
