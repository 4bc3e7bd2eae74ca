package rules

import (
	"math"
	"testing"

	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/profile"
)

const testRate = 1000.0

func testMeta() models.LogMetadata {
	return models.LogMetadata{SampleRateHz: testRate, BatteryCells: 4}
}

func framesWith(n int, fill func(i int, f *models.Frame)) []models.Frame {
	frames := make([]models.Frame, n)
	for i := range frames {
		frames[i].TimeUs = int64(i) * 1000
		frames[i].Throttle = 1400
		if fill != nil {
			fill(i, &frames[i])
		}
	}
	return frames
}

func windowOver(frames []models.Frame, axis models.Axis, phase models.FlightPhase) models.AnalysisWindow {
	return models.AnalysisWindow{
		Axis:       axis,
		StartIndex: 0,
		EndIndex:   len(frames),
		Range:      models.TimeRange{StartUs: frames[0].TimeUs, EndUs: frames[len(frames)-1].TimeUs},
		Phase:      phase,
	}
}

func TestCatalogLevels(t *testing.T) {
	ids := idgen.Sequence("t")

	has := func(rules []Rule, id string) bool {
		for _, r := range rules {
			if r.ID() == id {
				return true
			}
		}
		return false
	}

	quick := Catalog(ids, LevelQuick)
	standard := Catalog(ids, LevelStandard)
	deep := Catalog(ids, LevelDeep)

	for _, id := range []string{"frame-resonance", "rpm-noise", "bearing-wear"} {
		if has(quick, id) {
			t.Errorf("quick catalog includes %s", id)
		}
		if !has(standard, id) {
			t.Errorf("standard catalog missing %s", id)
		}
	}
	if len(deep) != len(standard) {
		t.Errorf("deep catalog has %d rules, standard has %d", len(deep), len(standard))
	}
	if !has(quick, "oscillation") || !has(quick, "desync") {
		t.Errorf("quick catalog dropped a core rule")
	}

	// Empty level defaults to standard.
	if len(Catalog(ids, "")) != len(standard) {
		t.Errorf("empty level did not default to standard")
	}
}

func TestCatalogAxisOwnership(t *testing.T) {
	for _, r := range Catalog(idgen.Sequence("t"), LevelStandard) {
		if len(r.IssueTypes()) == 0 {
			t.Errorf("rule %s owns no issue types", r.ID())
		}
		if len(r.Axes()) == 0 {
			t.Errorf("rule %s applies to no axes", r.ID())
		}
		if r.BaseConfidence() <= 0 || r.BaseConfidence() > 1 {
			t.Errorf("rule %s base confidence %f out of range", r.ID(), r.BaseConfidence())
		}
	}
}

func TestOscillationDetect(t *testing.T) {
	// 45 Hz sine on roll in hover with centered sticks. The Hann window
	// halves the peak bin, so 80 deg/s measures around 40.
	frames := framesWith(512, func(i int, f *models.Frame) {
		f.Gyro[0] = 80 * math.Sin(2*math.Pi*45*float64(i)/testRate)
	})
	w := windowOver(frames, models.AxisRoll, models.PhaseHover)

	rule := newOscillationRule(idgen.Sequence("t"))
	if !rule.Condition(w, frames) {
		t.Fatalf("condition rejected a steady hover window")
	}
	issues := rule.Detect(w, frames, profile.Default(), testMeta())
	if len(issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(issues))
	}
	issue := issues[0]
	if issue.Type != models.IssueOscillation {
		t.Errorf("type = %s, want %s", issue.Type, models.IssueOscillation)
	}
	if issue.Severity != models.SeverityMedium {
		t.Errorf("severity = %s, want medium", issue.Severity)
	}
	if issue.Metrics.FrequencyHz == nil || math.Abs(*issue.Metrics.FrequencyHz-45) > 5 {
		t.Errorf("frequency metric = %v, want ~45", issue.Metrics.FrequencyHz)
	}

	recs := rule.Recommend(issues, frames, profile.Default(), testMeta())
	if len(recs) != 1 {
		t.Fatalf("recs = %d, want 1", len(recs))
	}
	if len(recs[0].Changes) != 2 {
		t.Errorf("changes = %d, want D and P", len(recs[0].Changes))
	}
}

func TestOscillationLowFrequency(t *testing.T) {
	frames := framesWith(512, func(i int, f *models.Frame) {
		f.Gyro[2] = 60 * math.Sin(2*math.Pi*12*float64(i)/testRate)
	})
	w := windowOver(frames, models.AxisYaw, models.PhaseCruise)

	rule := newOscillationRule(idgen.Sequence("t"))
	issues := rule.Detect(w, frames, profile.Default(), testMeta())
	if len(issues) != 1 || issues[0].Type != models.IssueLowFreqOscillation {
		t.Fatalf("expected one low_freq_oscillation issue, got %v", issues)
	}
}

func TestOscillationConditionRejectsStickInput(t *testing.T) {
	frames := framesWith(512, nil)
	w := windowOver(frames, models.AxisRoll, models.PhaseHover)
	w.HasStickInput = true
	if newOscillationRule(idgen.Sequence("t")).Condition(w, frames) {
		t.Fatalf("condition accepted a window with stick input")
	}
}

func TestDesyncDetect(t *testing.T) {
	// Quiet flight with an uncommanded 1500 deg/s spike at sample 100.
	frames := framesWith(300, func(i int, f *models.Frame) {
		if i >= 100 && i < 110 {
			f.Gyro[1] = 1500
		}
	})
	w := windowOver(frames, models.AxisRoll, models.PhaseCruise)

	rule := newDesyncRule(idgen.Sequence("t"))
	issues := rule.Detect(w, frames, profile.Default(), testMeta())
	if len(issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(issues))
	}
	if issues[0].Severity != models.SeverityMedium {
		t.Errorf("severity = %s, want medium", issues[0].Severity)
	}

	recs := rule.Recommend(issues, frames, profile.Default(), testMeta())
	if len(recs) != 1 || recs[0].Type != models.RecommendationHardware {
		t.Fatalf("expected one hardware recommendation, got %v", recs)
	}
}

func TestDesyncIgnoresCommandedRotation(t *testing.T) {
	// A commanded flip hits the same rates but with the setpoint behind it.
	frames := framesWith(300, func(i int, f *models.Frame) {
		f.Setpoint[0] = 1500
		f.Gyro[0] = 1500
	})
	w := windowOver(frames, models.AxisRoll, models.PhaseManeuver)
	if issues := newDesyncRule(idgen.Sequence("t")).Detect(w, frames, profile.Default(), testMeta()); len(issues) != 0 {
		t.Fatalf("flagged a commanded rotation as desync")
	}
}

func TestVoltageSagDetect(t *testing.T) {
	// 16.8V resting, sagging to 14.4V: 0.6V per cell on 4S.
	frames := framesWith(300, func(i int, f *models.Frame) {
		f.Throttle = 1800
		f.Vbat = 16.8
		if i > 50 {
			f.Vbat = 14.4
		}
	})
	w := windowOver(frames, models.AxisRoll, models.PhasePunch)
	w.AvgThrottle = 1800

	rule := newVoltageSagRule(idgen.Sequence("t"))
	if !rule.Condition(w, frames) {
		t.Fatalf("condition rejected a punch window")
	}
	issues := rule.Detect(w, frames, profile.Default(), testMeta())
	if len(issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(issues))
	}
	if issues[0].Severity != models.SeverityMedium {
		t.Errorf("severity = %s, want medium", issues[0].Severity)
	}
	if issues[0].Metrics.Amplitude == nil || math.Abs(*issues[0].Metrics.Amplitude-0.6) > 0.01 {
		t.Errorf("per-cell sag metric = %v, want 0.6", issues[0].Metrics.Amplitude)
	}
}

func TestVoltageSagNoVbatChannel(t *testing.T) {
	frames := framesWith(300, func(i int, f *models.Frame) { f.Throttle = 1800 })
	w := windowOver(frames, models.AxisRoll, models.PhasePunch)
	if issues := newVoltageSagRule(idgen.Sequence("t")).Detect(w, frames, profile.Default(), testMeta()); len(issues) != 0 {
		t.Fatalf("flagged sag with no voltage telemetry")
	}
}

func TestCGOffsetDetect(t *testing.T) {
	// A steady +40 pitch I term through hover.
	frames := framesWith(300, func(i int, f *models.Frame) {
		f.I[1] = 40
	})
	w := windowOver(frames, models.AxisPitch, models.PhaseHover)

	rule := newCGOffsetRule(idgen.Sequence("t"))
	issues := rule.Detect(w, frames, profile.Default(), testMeta())
	if len(issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(issues))
	}
	if issues[0].Severity != models.SeverityMedium {
		t.Errorf("severity = %s, want medium", issues[0].Severity)
	}
}

func TestCGOffsetIgnoresOscillatingI(t *testing.T) {
	// The same magnitude but alternating sign averages out: not a CG problem.
	frames := framesWith(300, func(i int, f *models.Frame) {
		f.I[1] = 40
		if i%2 == 1 {
			f.I[1] = -40
		}
	})
	w := windowOver(frames, models.AxisPitch, models.PhaseHover)
	if issues := newCGOffsetRule(idgen.Sequence("t")).Detect(w, frames, profile.Default(), testMeta()); len(issues) != 0 {
		t.Fatalf("flagged an oscillating I term as CG offset")
	}
}

func TestAdvisoryRuleNeverFiresItself(t *testing.T) {
	frames := framesWith(300, nil)
	w := windowOver(frames, models.AxisRoll, models.PhaseHover)

	rule := newAdvisoryRule(idgen.Sequence("t"))
	if rule.Condition(w, frames) {
		t.Fatalf("advisory condition should always be false")
	}
	if issues := rule.Detect(w, frames, profile.Default(), testMeta()); issues != nil {
		t.Fatalf("advisory detector returned issues")
	}
}

func TestAdvisoryRecommendsForMetaIssues(t *testing.T) {
	issues := []models.DetectedIssue{
		{ID: "i1", Type: models.IssueThermalDegradation, Axis: models.AxisRoll, Severity: models.SeverityMedium, Confidence: 0.6},
		{ID: "i2", Type: models.IssueMechanicalEvent, Axis: models.AxisPitch, Severity: models.SeverityHigh, Confidence: 0.8},
		{ID: "i3", Type: models.IssueOscillation, Axis: models.AxisRoll, Severity: models.SeverityLow, Confidence: 0.5},
	}

	recs := newAdvisoryRule(idgen.Sequence("t")).Recommend(issues, nil, profile.Default(), testMeta())
	if len(recs) != 2 {
		t.Fatalf("recs = %d, want 2", len(recs))
	}
	if recs[0].Type != models.RecommendationInformational {
		t.Errorf("thermal rec type = %s, want informational", recs[0].Type)
	}
	if recs[1].Type != models.RecommendationHardware || recs[1].Priority != 9 {
		t.Errorf("mechanical rec = %s priority %d, want hardware priority 9", recs[1].Type, recs[1].Priority)
	}
}

func TestSeverityStep(t *testing.T) {
	if got := severityStep(5, 10, 20); got != models.SeverityLow {
		t.Errorf("severityStep(5) = %s", got)
	}
	if got := severityStep(15, 10, 20); got != models.SeverityMedium {
		t.Errorf("severityStep(15) = %s", got)
	}
	if got := severityStep(25, 10, 20); got != models.SeverityHigh {
		t.Errorf("severityStep(25) = %s", got)
	}
}

func TestPriorityForClamps(t *testing.T) {
	if got := priorityFor(models.SeverityHigh, 9); got != 10 {
		t.Errorf("priorityFor(high, 9) = %d, want 10", got)
	}
	if got := priorityFor(models.SeverityLow, 0); got != 1 {
		t.Errorf("priorityFor(low, 0) = %d, want 1", got)
	}
}

func TestProfileScalingRaisesThreshold(t *testing.T) {
	// An oscillation the default profile flags should pass under a profile
	// that quadruples the oscillation threshold.
	frames := framesWith(512, func(i int, f *models.Frame) {
		f.Gyro[0] = 80 * math.Sin(2*math.Pi*45*float64(i)/testRate)
	})
	w := windowOver(frames, models.AxisRoll, models.PhaseHover)

	tolerant := &profile.QuadProfile{
		Name:   "tolerant",
		Scales: map[models.IssueType]float64{models.IssueOscillation: 4},
	}
	rule := newOscillationRule(idgen.Sequence("t"))
	if issues := rule.Detect(w, frames, tolerant, testMeta()); len(issues) != 0 {
		t.Fatalf("scaled profile still flagged the oscillation")
	}
	if issues := rule.Detect(w, frames, profile.Default(), testMeta()); len(issues) != 1 {
		t.Fatalf("default profile missed the oscillation")
	}
}
