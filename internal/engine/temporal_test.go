package engine

import (
	"testing"

	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/models"
)

// flightFrames spans durationS seconds with just the endpoints populated; the
// analyzer only reads the first and last timestamps.
func flightFrames(durationS int64) []models.Frame {
	return []models.Frame{
		{TimeUs: 0},
		{TimeUs: durationS * 1_000_000},
	}
}

// sightings spreads n raw issues of one (type, axis) evenly across the
// flight with the given amplitudes.
func sightings(t models.IssueType, axis models.Axis, durationS int64, amplitudes []float64) []models.DetectedIssue {
	n := len(amplitudes)
	raw := make([]models.DetectedIssue, 0, n)
	for i, amp := range amplitudes {
		center := int64(float64(i+1) / float64(n+1) * float64(durationS) * 1e6)
		raw = append(raw, models.DetectedIssue{
			ID:         "raw",
			Type:       t,
			Axis:       axis,
			Severity:   models.SeverityMedium,
			Confidence: 0.6,
			Range:      models.TimeRange{StartUs: center - 50_000, EndUs: center + 50_000},
			Metrics:    models.IssueMetrics{Amplitude: models.Float(amp)},
		})
	}
	return raw
}

func dedupedFor(t models.IssueType, axis models.Axis) []models.DetectedIssue {
	return []models.DetectedIssue{{
		ID: "d1", Type: t, Axis: axis,
		Severity: models.SeverityMedium, Confidence: 0.6,
	}}
}

func TestTemporalWorsening(t *testing.T) {
	raw := sightings(models.IssueOscillation, models.AxisRoll, 60, []float64{10, 20, 30, 40, 50, 60})
	deduped := dedupedFor(models.IssueOscillation, models.AxisRoll)

	metas := NewTemporalProgressionAnalyzer(idgen.Sequence("t")).Analyze(raw, deduped, flightFrames(60))
	if len(metas) != 0 {
		t.Fatalf("metas = %d, want 0 for a single worsening type", len(metas))
	}
	p := deduped[0].Temporal
	if p == nil || p.Trend != models.TrendWorsening {
		t.Fatalf("trend = %v, want worsening", p)
	}
	if p.Slope <= slopeTrendCutoff {
		t.Errorf("slope = %f, want > %f", p.Slope, slopeTrendCutoff)
	}
	if deduped[0].Severity != models.SeverityMedium {
		t.Errorf("worsening must not change severity")
	}
}

func TestTemporalImprovingDemotesSeverity(t *testing.T) {
	raw := sightings(models.IssueGyroNoise, models.AxisPitch, 60, []float64{60, 50, 40, 30, 20, 10})
	deduped := dedupedFor(models.IssueGyroNoise, models.AxisPitch)

	NewTemporalProgressionAnalyzer(idgen.Sequence("t")).Analyze(raw, deduped, flightFrames(60))
	p := deduped[0].Temporal
	if p == nil || p.Trend != models.TrendImproving {
		t.Fatalf("trend = %v, want improving", p)
	}
	if deduped[0].Severity != models.SeverityLow {
		t.Errorf("severity = %s, want demoted to low", deduped[0].Severity)
	}
}

func TestTemporalShortFlightNoOp(t *testing.T) {
	raw := sightings(models.IssueOscillation, models.AxisRoll, 20, []float64{10, 20, 30, 40, 50, 60})
	deduped := dedupedFor(models.IssueOscillation, models.AxisRoll)

	metas := NewTemporalProgressionAnalyzer(idgen.Sequence("t")).Analyze(raw, deduped, flightFrames(20))
	if metas != nil || deduped[0].Temporal != nil {
		t.Fatalf("trend analysis ran on a flight under 30s")
	}
}

func TestTemporalFewSightingsSkipped(t *testing.T) {
	raw := sightings(models.IssueOscillation, models.AxisRoll, 60, []float64{10, 60})
	deduped := dedupedFor(models.IssueOscillation, models.AxisRoll)

	NewTemporalProgressionAnalyzer(idgen.Sequence("t")).Analyze(raw, deduped, flightFrames(60))
	if deduped[0].Temporal != nil {
		t.Fatalf("two sightings should not classify a trend")
	}
}

func TestTemporalSuddenOnsetMechanicalEvent(t *testing.T) {
	// All sightings in the second half of the flight.
	var raw []models.DetectedIssue
	for _, frac := range []float64{0.6, 0.7, 0.8, 0.9} {
		center := int64(frac * 60e6)
		raw = append(raw, models.DetectedIssue{
			ID: "raw", Type: models.IssueBearingWear, Axis: models.AxisRoll,
			Severity: models.SeverityMedium, Confidence: 0.6,
			Range: models.TimeRange{StartUs: center - 50_000, EndUs: center + 50_000},
		})
	}
	deduped := dedupedFor(models.IssueBearingWear, models.AxisRoll)

	metas := NewTemporalProgressionAnalyzer(idgen.Sequence("t")).Analyze(raw, deduped, flightFrames(60))
	if deduped[0].Temporal == nil || deduped[0].Temporal.Trend != models.TrendSuddenOnset {
		t.Fatalf("trend = %v, want sudden_onset", deduped[0].Temporal)
	}
	if len(metas) != 1 {
		t.Fatalf("metas = %d, want one mechanical event", len(metas))
	}
	meta := metas[0]
	if meta.Type != models.IssueMechanicalEvent || meta.Severity != models.SeverityHigh {
		t.Errorf("meta = %s/%s, want high-severity mechanical_event", meta.Type, meta.Severity)
	}
	if meta.Axis != models.AxisRoll {
		t.Errorf("meta axis = %s, want roll", meta.Axis)
	}
}

func TestTemporalThermalDegradation(t *testing.T) {
	raw := append(
		sightings(models.IssueOscillation, models.AxisYaw, 60, []float64{10, 20, 30, 40, 50, 60}),
		sightings(models.IssueDTermNoise, models.AxisYaw, 60, []float64{5, 10, 15, 20, 25, 30})...,
	)
	deduped := append(
		dedupedFor(models.IssueOscillation, models.AxisYaw),
		dedupedFor(models.IssueDTermNoise, models.AxisYaw)...,
	)

	metas := NewTemporalProgressionAnalyzer(idgen.Sequence("t")).Analyze(raw, deduped, flightFrames(60))
	if len(metas) != 1 {
		t.Fatalf("metas = %d, want one thermal issue", len(metas))
	}
	if metas[0].Type != models.IssueThermalDegradation || metas[0].Axis != models.AxisYaw {
		t.Errorf("meta = %s on %s, want thermal_degradation on yaw", metas[0].Type, metas[0].Axis)
	}
}

func TestTemporalStableFlat(t *testing.T) {
	raw := sightings(models.IssuePropwash, models.AxisPitch, 60, []float64{30, 30, 30, 30, 30, 30})
	deduped := dedupedFor(models.IssuePropwash, models.AxisPitch)

	NewTemporalProgressionAnalyzer(idgen.Sequence("t")).Analyze(raw, deduped, flightFrames(60))
	p := deduped[0].Temporal
	if p == nil || p.Trend != models.TrendStable {
		t.Fatalf("trend = %v, want stable", p)
	}
}
