// Package chat answers natural-language questions about the safety
// database in English and Arabic. Cheap deterministic stages (domain
// gate, count intents, trend intents) run first; only questions none of
// them claim reach vector retrieval and the LLM.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

type ErrorKind string

const (
	ErrKindRetrieval ErrorKind = "retrieval"
	ErrKindLLM       ErrorKind = "llm"
)

// Error carries the failure kind alongside the cause so the API layer
// can log precisely while still serving the localized fallback text.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

type Dispatcher struct {
	store     Store
	retriever Retriever
	llm       LLM
	log       *slog.Logger

	now func() time.Time
}

func NewDispatcher(store Store, retriever Retriever, llm LLM, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		retriever: retriever,
		llm:       llm,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type request struct {
	question string
	lower    string
	arabic   bool
}

// route pairs a predicate with its handler. Routes are evaluated in
// declaration order; the first match wins.
type route struct {
	name   string
	match  func(*request) bool
	handle func(context.Context, *request) (string, error)
}

func (d *Dispatcher) routes() []route {
	return []route{
		{"off-topic", func(r *request) bool { return !inLabDomain(r.question) }, d.handleRefusal},
		{"count", func(r *request) bool { return hasCountIntent(r) }, d.handleCount},
		{"trend", func(r *request) bool { return hasTrendIntent(r) }, d.handleTrend},
		{"retrieval", func(r *request) bool { return true }, d.handleRetrieval},
	}
}

// Answer routes a question through the staged pipeline and returns the
// reply text. On retrieval or LLM failure the text is still usable (a
// localized fallback) and the error carries the kind for logging.
func (d *Dispatcher) Answer(ctx context.Context, question string) (string, error) {
	r := &request{
		question: question,
		lower:    strings.ToLower(question),
		arabic:   IsArabic(question),
	}
	for _, rt := range d.routes() {
		if rt.match(r) {
			d.log.Debug("question routed", "stage", rt.name, "arabic", r.arabic)
			return rt.handle(ctx, r)
		}
	}
	return d.handleRefusal(ctx, r)
}

func (d *Dispatcher) handleRefusal(_ context.Context, r *request) (string, error) {
	if r.arabic {
		return "يمكنني فقط الإجابة عن أسئلة تتعلق بسلامة المختبر: مخالفات معدات الوقاية، التنبيهات، التسربات، عمليات الرصد، الأشخاص، والفيديوهات.", nil
	}
	return "I can only answer questions about lab safety: PPE violations, alerts, spills, detections, persons, and videos.", nil
}

func notEnoughData(arabic bool) string {
	if arabic {
		return "لا توجد بيانات كافية للإجابة عن هذا السؤال."
	}
	return "I don't have enough data to answer that question."
}

// ---- intent detection ----

var countPatternEN = regexp.MustCompile(`\bhow many\b|\bcount\b|\bnumber of\b|\btotal\b`)

var countKeywordsAR = []string{"كم", "عدد", "المجموع", "إجمالي"}

func hasCountIntent(r *request) bool {
	if r.arabic {
		return containsAny(r.question, countKeywordsAR)
	}
	return countPatternEN.MatchString(r.lower)
}

// A time keyword plus a known subject is enough for the trend stage; no
// comparison wording is required, so "Were there any alerts today?" gets
// today's count rather than falling through to retrieval.
func hasTrendIntent(r *request) bool {
	return timeWindowOf(r) != windowNone && trendSubjectOf(r) != ""
}

type timeWindow int

const (
	windowNone timeWindow = iota
	windowToday
	windowYesterday
	windowWeek
)

func timeWindowOf(r *request) timeWindow {
	q := r.lower
	if r.arabic {
		q = r.question
	}
	switch {
	case strings.Contains(q, "this week") || strings.Contains(q, "الأسبوع") || strings.Contains(q, "الاسبوع"):
		return windowWeek
	case strings.Contains(q, "yesterday") || strings.Contains(q, "أمس") || strings.Contains(q, "امس") || strings.Contains(q, "البارحة"):
		return windowYesterday
	case strings.Contains(q, "today") || strings.Contains(q, "اليوم"):
		return windowToday
	}
	return windowNone
}

// dayBounds returns the UTC day range [00:00:00, 23:59:59.999...] of d.
func dayBounds(d time.Time) (time.Time, time.Time) {
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24*time.Hour - time.Nanosecond)
}

func (d *Dispatcher) windowBounds(w timeWindow) (time.Time, time.Time) {
	now := d.now()
	switch w {
	case windowYesterday:
		return dayBounds(now.AddDate(0, 0, -1))
	case windowWeek:
		// Week counts anchor at Monday, not a rolling seven days.
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		start, _ := dayBounds(now.AddDate(0, 0, -daysSinceMonday))
		_, end := dayBounds(now)
		return start, end
	default:
		return dayBounds(now)
	}
}

// lastSevenDays is the trend stage's rolling week.
func (d *Dispatcher) lastSevenDays() (time.Time, time.Time) {
	now := d.now()
	start, _ := dayBounds(now.AddDate(0, 0, -6))
	_, end := dayBounds(now)
	return start, end
}

// ---- count stage ----

type subject struct {
	key     string
	nounEN  string
	nounAR  string
	matchEN []string
	matchAR []string
}

// Order matters: "PPE violation alerts" must claim the question before
// the bare "alert" subject does.
var countSubjects = []subject{
	{"ppe", "PPE violation alerts", "مخالفات معدات الوقاية", []string{"ppe"}, []string{"معدات", "وقاية"}},
	{"spill", "spills", "تسربات", []string{"spill"}, []string{"تسرب"}},
	{"person", "persons", "أشخاص", []string{"person", "people"}, []string{"شخص", "أشخاص"}},
	{"detection", "detections", "عمليات رصد", []string{"detection"}, []string{"رصد", "كشف"}},
	{"alert", "alerts", "تنبيهات", []string{"alert"}, []string{"تنبيه"}},
	{"video", "videos", "فيديوهات", []string{"video"}, []string{"فيديو"}},
}

func (s subject) matches(r *request) bool {
	if r.arabic && containsAny(r.question, s.matchAR) {
		return true
	}
	return containsAny(r.lower, s.matchEN)
}

func (s subject) noun(arabic bool) string {
	if arabic {
		return s.nounAR
	}
	return s.nounEN
}

func countSubjectOf(r *request) *subject {
	for i := range countSubjects {
		if countSubjects[i].matches(r) {
			return &countSubjects[i]
		}
	}
	return nil
}

func (d *Dispatcher) handleCount(ctx context.Context, r *request) (string, error) {
	sub := countSubjectOf(r)
	if sub == nil {
		return notEnoughData(r.arabic), nil
	}

	window := timeWindowOf(r)
	n, err := d.countFor(ctx, sub.key, window)
	if err != nil {
		d.log.Error("count query failed", "subject", sub.key, "error", err)
		return notEnoughData(r.arabic), &Error{Kind: ErrKindRetrieval, Err: err}
	}
	return countText(r.arabic, window, n, sub.noun(r.arabic)), nil
}

func (d *Dispatcher) countFor(ctx context.Context, key string, window timeWindow) (int, error) {
	windowed := window != windowNone
	start, end := d.windowBounds(window)

	switch key {
	case "ppe":
		// PPE counts are always database-wide.
		return d.store.CountPPEViolations(ctx)
	case "spill":
		if windowed {
			return d.store.CountSpillsBetween(ctx, start, end)
		}
		return d.store.CountSpills(ctx)
	case "person":
		if windowed {
			return d.store.CountPersonsBetween(ctx, start, end)
		}
		return d.store.CountPersons(ctx)
	case "detection":
		return d.store.CountDetections(ctx)
	case "alert":
		if windowed {
			return d.store.CountAlertsBetween(ctx, start, end)
		}
		return d.store.CountAlerts(ctx)
	case "video":
		return d.store.CountVideos(ctx)
	}
	return 0, fmt.Errorf("unknown count subject %q", key)
}

func countText(arabic bool, window timeWindow, n int, noun string) string {
	if arabic {
		switch window {
		case windowToday:
			return fmt.Sprintf("تم تسجيل %d %s اليوم.", n, noun)
		case windowYesterday:
			return fmt.Sprintf("تم تسجيل %d %s أمس.", n, noun)
		case windowWeek:
			return fmt.Sprintf("تم تسجيل %d %s هذا الأسبوع.", n, noun)
		default:
			return fmt.Sprintf("يوجد %d %s في قاعدة البيانات.", n, noun)
		}
	}
	switch window {
	case windowToday:
		return fmt.Sprintf("There were %d %s today.", n, noun)
	case windowYesterday:
		return fmt.Sprintf("There were %d %s yesterday.", n, noun)
	case windowWeek:
		return fmt.Sprintf("There were %d %s this week.", n, noun)
	default:
		return fmt.Sprintf("There are %d %s in the database.", n, noun)
	}
}

// ---- trend stage ----

var trendSubjects = []subject{
	{"person", "persons", "أشخاص", []string{"person", "people"}, []string{"شخص", "أشخاص"}},
	{"alert", "alerts", "تنبيهات", []string{"alert"}, []string{"تنبيه"}},
	{"spill", "spills", "تسربات", []string{"spill"}, []string{"تسرب"}},
	{"ppe", "PPE violations", "مخالفات معدات الوقاية", []string{"ppe"}, []string{"معدات", "وقاية"}},
}

func trendSubjectOf(r *request) string {
	for _, s := range trendSubjects {
		if s.matches(r) {
			return s.key
		}
	}
	return ""
}

func (d *Dispatcher) trendCount(ctx context.Context, key string, start, end time.Time) (int, error) {
	switch key {
	case "person":
		return d.store.CountPersonsBetween(ctx, start, end)
	case "spill":
		return d.store.CountSpillsBetween(ctx, start, end)
	default:
		// Alert trends cover PPE questions too; violation alerts dominate
		// the alerts table.
		return d.store.CountAlertsBetween(ctx, start, end)
	}
}

func (d *Dispatcher) handleTrend(ctx context.Context, r *request) (string, error) {
	key := trendSubjectOf(r)
	var noun string
	for _, s := range trendSubjects {
		if s.key == key {
			noun = s.noun(r.arabic)
		}
	}

	switch timeWindowOf(r) {
	case windowWeek:
		start, end := d.lastSevenDays()
		n, err := d.trendCount(ctx, key, start, end)
		if err != nil {
			d.log.Error("trend query failed", "subject", key, "error", err)
			return notEnoughData(r.arabic), &Error{Kind: ErrKindRetrieval, Err: err}
		}
		return countText(r.arabic, windowWeek, n, noun), nil

	case windowYesterday:
		todayStart, todayEnd := dayBounds(d.now())
		yestStart, yestEnd := dayBounds(d.now().AddDate(0, 0, -1))

		today, err := d.trendCount(ctx, key, todayStart, todayEnd)
		if err != nil {
			d.log.Error("trend query failed", "subject", key, "error", err)
			return notEnoughData(r.arabic), &Error{Kind: ErrKindRetrieval, Err: err}
		}
		yesterday, err := d.trendCount(ctx, key, yestStart, yestEnd)
		if err != nil {
			d.log.Error("trend query failed", "subject", key, "error", err)
			return notEnoughData(r.arabic), &Error{Kind: ErrKindRetrieval, Err: err}
		}
		return comparisonText(r.arabic, noun, today, yesterday), nil

	default:
		start, end := d.windowBounds(windowToday)
		n, err := d.trendCount(ctx, key, start, end)
		if err != nil {
			d.log.Error("trend query failed", "subject", key, "error", err)
			return notEnoughData(r.arabic), &Error{Kind: ErrKindRetrieval, Err: err}
		}
		return countText(r.arabic, windowToday, n, noun), nil
	}
}

func comparisonText(arabic bool, noun string, today, yesterday int) string {
	diff := today - yesterday
	if arabic {
		switch {
		case diff > 0:
			return fmt.Sprintf("تم تسجيل %d %s أكثر اليوم مقارنة بالأمس (%d مقابل %d).", diff, noun, today, yesterday)
		case diff < 0:
			return fmt.Sprintf("تم تسجيل %d %s أقل اليوم مقارنة بالأمس (%d مقابل %d).", -diff, noun, today, yesterday)
		default:
			return fmt.Sprintf("عدد %s اليوم وأمس متساوٍ (%d).", noun, today)
		}
	}
	switch {
	case diff > 0:
		return fmt.Sprintf("There were %d more %s today than yesterday (%d vs %d).", diff, noun, today, yesterday)
	case diff < 0:
		return fmt.Sprintf("There were %d fewer %s today than yesterday (%d vs %d).", -diff, noun, today, yesterday)
	default:
		return fmt.Sprintf("The number of %s today and yesterday is the same (%d).", noun, today)
	}
}

// ---- retrieval + LLM stage ----

const systemPrompt = "You are the assistant of an Intelligent Laboratory Safety Monitoring System. " +
	"Answer questions using only the database context provided. " +
	"If the context does not contain the answer, say you do not have enough data. " +
	"Respond in Arabic if the question is in Arabic, otherwise respond in English."

const retrievalLimit = 8

func (d *Dispatcher) handleRetrieval(ctx context.Context, r *request) (string, error) {
	snippets, err := d.retriever.Search(ctx, r.question, retrievalLimit)
	if err != nil {
		d.log.Error("document search failed", "error", err)
		return notEnoughData(r.arabic), &Error{Kind: ErrKindRetrieval, Err: err}
	}
	if len(snippets) == 0 {
		return notEnoughData(r.arabic), nil
	}

	var b strings.Builder
	for _, s := range snippets {
		fmt.Fprintf(&b, "- [%s] %s\n", s.TableName, s.Text)
	}

	answer, err := d.llm.Complete(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("Database context:\n%s\nQuestion: %s", b.String(), r.question)},
	})
	if err != nil {
		d.log.Error("llm completion failed", "error", err)
		if r.arabic {
			return "المساعد غير متاح حاليًا، يرجى المحاولة لاحقًا.", &Error{Kind: ErrKindLLM, Err: err}
		}
		return "The assistant is unavailable right now, please try again later.", &Error{Kind: ErrKindLLM, Err: err}
	}
	if answer == "" {
		if r.arabic {
			return "لم يتم الحصول على رد صالح.", nil
		}
		return "No valid response received.", nil
	}
	return answer, nil
}
