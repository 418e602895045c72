// Package stats aggregates the persisted detection history into the
// dashboard summary numbers and chart datasets. All aggregation happens
// in memory over recent rows; the tables stay index-light.
package stats

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/nabahlab/nabah/internal/database"
	"github.com/nabahlab/nabah/internal/models"
)

// fetchLimit caps how many rows each aggregation pass pulls.
const fetchLimit = 10000

type Stats struct {
	TotalPersons    int     `json:"total_persons"`
	SafeCount       int     `json:"safe_count"`
	UnsafeCount     int     `json:"unsafe_count"`
	ComplianceRate  float64 `json:"compliance_rate"`
	TotalAlerts     int     `json:"total_alerts"`
	TotalSpills     int     `json:"total_spills"`
	TotalDetections int     `json:"total_detections"`
	TotalVideos     int     `json:"total_videos"`
	MostActiveHour  int     `json:"most_active_hour"`
	// ActiveHours counts distinct UTC date-hour buckets with activity.
	ActiveHours int `json:"active_hours"`
}

// Chart is one labeled dataset, shaped for direct chart.js consumption.
type Chart struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type Service struct {
	persons    *database.PersonRepository
	alerts     *database.AlertRepository
	spills     *database.SpillRepository
	detections *database.DetectionRepository
	videos     *database.VideoRepository
}

func NewService(
	persons *database.PersonRepository,
	alerts *database.AlertRepository,
	spills *database.SpillRepository,
	detections *database.DetectionRepository,
	videos *database.VideoRepository,
) *Service {
	return &Service{
		persons:    persons,
		alerts:     alerts,
		spills:     spills,
		detections: detections,
		videos:     videos,
	}
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	persons, err := s.persons.List(ctx, fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load persons: %w", err)
	}
	alerts, err := s.alerts.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}
	spills, err := s.spills.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count spills: %w", err)
	}
	detections, err := s.detections.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count detections: %w", err)
	}
	videos, err := s.videos.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count videos: %w", err)
	}
	return BuildStats(persons, alerts, spills, detections, videos), nil
}

func (s *Service) Charts(ctx context.Context) (map[string]Chart, error) {
	persons, err := s.persons.List(ctx, fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load persons: %w", err)
	}
	alerts, err := s.alerts.List(ctx, fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load alerts: %w", err)
	}
	spills, err := s.spills.List(ctx, fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load spills: %w", err)
	}
	detections, err := s.detections.List(ctx, fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load detections: %w", err)
	}
	return BuildCharts(persons, alerts, spills, detections), nil
}

// BuildStats computes the dashboard headline numbers.
func BuildStats(persons []models.Person, alertCount, spillCount, detectionCount, videoCount int) *Stats {
	st := &Stats{
		TotalPersons:    len(persons),
		TotalAlerts:     alertCount,
		TotalSpills:     spillCount,
		TotalDetections: detectionCount,
		TotalVideos:     videoCount,
		MostActiveHour:  -1,
	}

	var hourCounts [24]int
	hourBuckets := map[string]struct{}{}
	for _, p := range persons {
		if p.Status == models.StatusSafe {
			st.SafeCount++
		} else {
			st.UnsafeCount++
		}
		hourCounts[p.CreatedAt.UTC().Hour()]++
		hourBuckets[p.CreatedAt.UTC().Format("2006-01-02 15")] = struct{}{}
	}
	st.ActiveHours = len(hourBuckets)

	if st.TotalPersons > 0 {
		st.ComplianceRate = round2(float64(st.SafeCount) / float64(st.TotalPersons) * 100)
		best := 0
		for h, n := range hourCounts {
			if n > best {
				best = n
				st.MostActiveHour = h
			}
		}
	}
	return st
}

// BuildCharts computes every chart dataset in one pass over the rows.
func BuildCharts(persons []models.Person, alerts []models.Alert, spills []models.Spill, detections []models.Detection) map[string]Chart {
	charts := map[string]Chart{}

	var safe, unsafe int
	var wearing [4]int
	var violations [4]int
	var redZoneUnsafe, otherUnsafe int
	var itemsWornHist [5]int
	totalItemsWorn := 0

	type shiftTally struct{ safe, total int }
	shifts := map[string]*shiftTally{
		"Morning": {}, "Evening": {}, "Night": {},
	}

	type dayTally struct{ safe, unsafe int }
	personDays := map[string]*dayTally{}

	for i := range persons {
		p := &persons[i]
		isSafe := p.Status == models.StatusSafe
		if isSafe {
			safe++
		} else {
			unsafe++
			if p.InRedZone {
				redZoneUnsafe++
			} else {
				otherUnsafe++
			}
		}

		flags := [4]bool{p.HasMask, p.HasGloves, p.HasLabcoat, p.HasGlasses}
		worn := 0
		for j, on := range flags {
			if on {
				wearing[j]++
				worn++
			} else {
				violations[j]++
			}
		}
		itemsWornHist[worn]++
		totalItemsWorn += worn

		sh := shiftOf(p.CreatedAt.UTC().Hour())
		shifts[sh].total++
		if isSafe {
			shifts[sh].safe++
		}

		day := dayKey(p.CreatedAt)
		if personDays[day] == nil {
			personDays[day] = &dayTally{}
		}
		if isSafe {
			personDays[day].safe++
		} else {
			personDays[day].unsafe++
		}
	}

	itemLabels := []string{"Mask", "Gloves", "Labcoat", "Glasses"}
	total := len(persons)

	complianceVals := make([]float64, 4)
	missingVals := make([]float64, 4)
	if total > 0 {
		for j := range itemLabels {
			complianceVals[j] = round2(float64(wearing[j]) / float64(total) * 100)
			missingVals[j] = round2(float64(violations[j]) / float64(total) * 100)
		}
	}
	charts["ppe_compliance"] = Chart{Labels: itemLabels, Values: complianceVals}
	charts["ppe_missing_ratio"] = Chart{Labels: itemLabels, Values: missingVals}
	charts["violation_counts"] = Chart{Labels: itemLabels, Values: []float64{
		float64(violations[0]), float64(violations[1]), float64(violations[2]), float64(violations[3]),
	}}

	charts["unsafe_ratio"] = Chart{
		Labels: []string{"Safe", "Unsafe"},
		Values: []float64{float64(safe), float64(unsafe)},
	}
	charts["zone_events"] = Chart{
		Labels: []string{"Red Zone", "Other"},
		Values: []float64{float64(redZoneUnsafe), float64(otherUnsafe)},
	}

	histLabels := make([]string, 5)
	histVals := make([]float64, 5)
	for i := 0; i <= 4; i++ {
		histLabels[i] = fmt.Sprintf("%d items", i)
		histVals[i] = float64(itemsWornHist[i])
	}
	charts["ppe_histogram"] = Chart{Labels: histLabels, Values: histVals}

	avgItems := 0.0
	if total > 0 {
		avgItems = round2(float64(totalItemsWorn) / float64(total))
	}
	charts["avg_ppe_items"] = Chart{Labels: []string{"Average PPE Items"}, Values: []float64{avgItems}}

	shiftLabels := []string{"Morning", "Evening", "Night"}
	shiftVals := make([]float64, 3)
	for i, name := range shiftLabels {
		t := shifts[name]
		if t.total > 0 {
			shiftVals[i] = round2(float64(t.safe) / float64(t.total) * 100)
		}
	}
	charts["shift_compliance"] = Chart{Labels: shiftLabels, Values: shiftVals}

	days := sortedKeys(personDays)
	complianceOverTime := make([]float64, len(days))
	unsafeOverTime := make([]float64, len(days))
	for i, day := range days {
		t := personDays[day]
		dayTotal := t.safe + t.unsafe
		if dayTotal > 0 {
			complianceOverTime[i] = round2(float64(t.safe) / float64(dayTotal) * 100)
		}
		unsafeOverTime[i] = float64(t.unsafe)
	}
	charts["compliance_over_time"] = Chart{Labels: days, Values: complianceOverTime}
	charts["unsafe_over_time"] = Chart{Labels: days, Values: unsafeOverTime}

	alertTypes := map[string]int{}
	alertDays := map[string]int{}
	ppeAlerts := 0
	for _, a := range alerts {
		alertTypes[a.AlertType]++
		alertDays[dayKey(a.CreatedAt)]++
		if a.AlertType == models.AlertTypePPEViolation {
			ppeAlerts++
		}
	}
	charts["alert_type_counts"] = countChart(alertTypes)
	charts["alerts_daily"] = countChart(alertDays)

	spillDays := map[string]int{}
	for _, sp := range spills {
		spillDays[dayKey(sp.CreatedAt)]++
	}
	charts["spills_per_day"] = countChart(spillDays)

	charts["incident_types"] = Chart{
		Labels: []string{"PPE Violation", "Spill"},
		Values: []float64{float64(ppeAlerts), float64(len(spills))},
	}

	confSum := map[string]float64{}
	confCount := map[string]int{}
	for _, d := range detections {
		confSum[d.ClassName] += d.Confidence
		confCount[d.ClassName]++
	}
	classes := make([]string, 0, len(confSum))
	for c := range confSum {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	confVals := make([]float64, len(classes))
	for i, c := range classes {
		confVals[i] = round2(confSum[c] / float64(confCount[c]))
	}
	charts["avg_confidence"] = Chart{Labels: classes, Values: confVals}

	return charts
}

// shiftOf buckets an hour into the lab's shifts: Morning 08-16,
// Evening 16-24, Night 00-08.
func shiftOf(hour int) string {
	switch {
	case hour >= 8 && hour < 16:
		return "Morning"
	case hour >= 16:
		return "Evening"
	default:
		return "Night"
	}
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func countChart(m map[string]int) Chart {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]float64, len(keys))
	for i, k := range keys {
		vals[i] = float64(m[k])
	}
	return Chart{Labels: keys, Values: vals}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
