package stats

import (
	"testing"
	"time"

	"github.com/nabahlab/nabah/internal/models"
)

func person(created time.Time, mask, gloves, labcoat, glasses, redZone bool) models.Person {
	return models.Person{
		ID:         "p",
		HasMask:    mask,
		HasGloves:  gloves,
		HasLabcoat: labcoat,
		HasGlasses: glasses,
		InRedZone:  redZone,
		Status:     models.StatusFor(mask, gloves, labcoat, glasses),
		CreatedAt:  created,
	}
}

func at(day, hour int) time.Time {
	return time.Date(2026, 4, day, hour, 0, 0, 0, time.UTC)
}

func TestBuildStats(t *testing.T) {
	persons := []models.Person{
		person(at(1, 9), true, true, true, true, false),
		person(at(1, 9), true, true, true, true, false),
		person(at(1, 20), false, true, true, true, false),
	}

	st := BuildStats(persons, 7, 2, 30, 4)

	if st.TotalPersons != 3 || st.SafeCount != 2 || st.UnsafeCount != 1 {
		t.Errorf("Unexpected person counts: %+v", st)
	}
	if st.ComplianceRate != 66.67 {
		t.Errorf("ComplianceRate = %v, want 66.67", st.ComplianceRate)
	}
	if st.TotalAlerts != 7 || st.TotalSpills != 2 || st.TotalDetections != 30 || st.TotalVideos != 4 {
		t.Errorf("Unexpected totals: %+v", st)
	}
	if st.MostActiveHour != 9 {
		t.Errorf("MostActiveHour = %d, want 9", st.MostActiveHour)
	}
	if st.ActiveHours != 2 {
		t.Errorf("ActiveHours = %d, want 2", st.ActiveHours)
	}
}

func TestBuildStats_Empty(t *testing.T) {
	st := BuildStats(nil, 0, 0, 0, 0)
	if st.ComplianceRate != 0 {
		t.Errorf("Empty compliance rate should be 0, got %v", st.ComplianceRate)
	}
	if st.MostActiveHour != -1 {
		t.Errorf("Empty MostActiveHour should be -1, got %d", st.MostActiveHour)
	}
}

func TestBuildCharts_PPEBreakdown(t *testing.T) {
	persons := []models.Person{
		person(at(1, 9), true, true, true, true, false),
		person(at(1, 10), false, true, true, true, true),
		person(at(1, 11), false, false, true, true, false),
		person(at(1, 12), true, true, true, true, false),
	}

	charts := BuildCharts(persons, nil, nil, nil)

	pc := charts["ppe_compliance"]
	if pc.Labels[0] != "Mask" || pc.Values[0] != 50 {
		t.Errorf("Mask compliance = %v, want 50", pc.Values[0])
	}
	if pc.Values[2] != 100 {
		t.Errorf("Labcoat compliance = %v, want 100", pc.Values[2])
	}

	vc := charts["violation_counts"]
	if vc.Values[0] != 2 || vc.Values[1] != 1 || vc.Values[2] != 0 || vc.Values[3] != 0 {
		t.Errorf("Unexpected violation counts: %v", vc.Values)
	}

	ur := charts["unsafe_ratio"]
	if ur.Values[0] != 2 || ur.Values[1] != 2 {
		t.Errorf("Unexpected safe/unsafe split: %v", ur.Values)
	}

	ze := charts["zone_events"]
	if ze.Values[0] != 1 || ze.Values[1] != 1 {
		t.Errorf("Unexpected zone events: %v", ze.Values)
	}

	hist := charts["ppe_histogram"]
	if hist.Values[4] != 2 || hist.Values[3] != 1 || hist.Values[2] != 1 {
		t.Errorf("Unexpected histogram: %v", hist.Values)
	}

	avg := charts["avg_ppe_items"]
	if avg.Values[0] != 3.25 {
		t.Errorf("Average PPE items = %v, want 3.25", avg.Values[0])
	}
}

func TestBuildCharts_ShiftCompliance(t *testing.T) {
	persons := []models.Person{
		person(at(1, 8), true, true, true, true, false),   // morning, safe
		person(at(1, 15), false, true, true, true, false), // morning, unsafe
		person(at(1, 16), true, true, true, true, false),  // evening, safe
		person(at(1, 2), false, true, true, true, false),  // night, unsafe
	}

	charts := BuildCharts(persons, nil, nil, nil)
	sc := charts["shift_compliance"]

	if sc.Labels[0] != "Morning" || sc.Values[0] != 50 {
		t.Errorf("Morning compliance = %v, want 50", sc.Values[0])
	}
	if sc.Values[1] != 100 {
		t.Errorf("Evening compliance = %v, want 100", sc.Values[1])
	}
	if sc.Values[2] != 0 {
		t.Errorf("Night compliance = %v, want 0", sc.Values[2])
	}
}

func TestBuildCharts_TimeSeries(t *testing.T) {
	persons := []models.Person{
		person(at(2, 9), true, true, true, true, false),
		person(at(2, 10), false, true, true, true, false),
		person(at(1, 9), true, true, true, true, false),
	}
	alerts := []models.Alert{
		{AlertType: models.AlertTypePPEViolation, CreatedAt: at(1, 9)},
		{AlertType: models.AlertTypePPEViolation, CreatedAt: at(2, 9)},
		{AlertType: "spill", CreatedAt: at(2, 10)},
	}
	spills := []models.Spill{
		{CreatedAt: at(2, 10)},
	}

	charts := BuildCharts(persons, alerts, spills, nil)

	cot := charts["compliance_over_time"]
	if len(cot.Labels) != 2 || cot.Labels[0] != "2026-04-01" || cot.Labels[1] != "2026-04-02" {
		t.Fatalf("Day labels not sorted: %v", cot.Labels)
	}
	if cot.Values[0] != 100 || cot.Values[1] != 50 {
		t.Errorf("Unexpected compliance over time: %v", cot.Values)
	}

	uot := charts["unsafe_over_time"]
	if uot.Values[0] != 0 || uot.Values[1] != 1 {
		t.Errorf("Unexpected unsafe over time: %v", uot.Values)
	}

	atc := charts["alert_type_counts"]
	if len(atc.Labels) != 2 || atc.Labels[0] != models.AlertTypePPEViolation {
		t.Fatalf("Unexpected alert types: %v", atc.Labels)
	}
	if atc.Values[0] != 2 || atc.Values[1] != 1 {
		t.Errorf("Unexpected alert type counts: %v", atc.Values)
	}

	it := charts["incident_types"]
	if it.Values[0] != 2 || it.Values[1] != 1 {
		t.Errorf("Unexpected incident types: %v", it.Values)
	}

	spd := charts["spills_per_day"]
	if len(spd.Labels) != 1 || spd.Labels[0] != "2026-04-02" || spd.Values[0] != 1 {
		t.Errorf("Unexpected spills per day: %v %v", spd.Labels, spd.Values)
	}
}

func TestBuildCharts_AvgConfidence(t *testing.T) {
	detections := []models.Detection{
		{ClassName: "person", Confidence: 0.8},
		{ClassName: "person", Confidence: 0.9},
		{ClassName: "liquid", Confidence: 0.7},
	}

	charts := BuildCharts(nil, nil, nil, detections)
	ac := charts["avg_confidence"]

	if len(ac.Labels) != 2 || ac.Labels[0] != "liquid" || ac.Labels[1] != "person" {
		t.Fatalf("Unexpected classes: %v", ac.Labels)
	}
	if ac.Values[0] != 0.7 {
		t.Errorf("liquid avg = %v, want 0.7", ac.Values[0])
	}
	if ac.Values[1] != 0.85 {
		t.Errorf("person avg = %v, want 0.85", ac.Values[1])
	}
}
