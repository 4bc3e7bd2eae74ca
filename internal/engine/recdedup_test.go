package engine

import (
	"strings"
	"testing"

	"github.com/rotorlab/tune-engine/internal/models"
)

func recWith(id string, priority int, conf float64, changes ...models.ParameterChange) models.Recommendation {
	return models.Recommendation{
		ID:         id,
		IssueID:    "issue-" + id,
		Type:       models.RecommendationTuning,
		Priority:   priority,
		Confidence: conf,
		Title:      "rec " + id,
		Changes:    changes,
	}
}

func change(p models.Parameter, axis models.Axis, expr string) models.ParameterChange {
	return models.ParameterChange{Parameter: p, Axis: axis, RecommendedChange: expr}
}

func TestRecDedupOpposingPercentChangesCancel(t *testing.T) {
	in := []models.Recommendation{
		recWith("a", 5, 1.0, change(models.ParamDGain, models.AxisRoll, "+5%")),
		recWith("b", 5, 1.0, change(models.ParamDGain, models.AxisRoll, "-5%")),
	}

	out := NewRecommendationDeduplicator().Deduplicate(in)
	for _, rec := range out {
		for _, ch := range rec.Changes {
			if ch.Parameter == models.ParamDGain && ch.Axis == models.AxisRoll {
				t.Fatalf("cancelling changes survived as %q", ch.RecommendedChange)
			}
		}
	}
}

func TestRecDedupWeightedMergeRoundsToIncrement(t *testing.T) {
	in := []models.Recommendation{
		recWith("a", 6, 0.9, change(models.ParamFeedforward, models.AxisPitch, "+0.3")),
		recWith("b", 4, 0.3, change(models.ParamFeedforward, models.AxisPitch, "+0.1")),
	}

	out := NewRecommendationDeduplicator().Deduplicate(in)
	if len(out) != 1 {
		t.Fatalf("recs = %d, want 1", len(out))
	}
	rec := out[0]
	if rec.ID != "a" {
		t.Errorf("winner = %s, want the higher-priority rec", rec.ID)
	}
	if len(rec.Changes) != 1 {
		t.Fatalf("changes = %d, want 1", len(rec.Changes))
	}
	// (0.3*0.9 + 0.1*0.3) / 1.2 = 0.25 exactly on the increment.
	if rec.Changes[0].RecommendedChange != "+0.25" {
		t.Errorf("merged change = %q, want +0.25", rec.Changes[0].RecommendedChange)
	}
	if !strings.Contains(rec.Title, "feedforward") {
		t.Errorf("rewritten title %q should name the parameter", rec.Title)
	}
	found := false
	for _, id := range rec.RelatedIssueIDs {
		if id == "issue-b" {
			found = true
		}
	}
	if !found {
		t.Errorf("loser's issue id not absorbed: %v", rec.RelatedIssueIDs)
	}
}

func TestRecDedupIdenticalChangesKeptVerbatim(t *testing.T) {
	in := []models.Recommendation{
		recWith("a", 6, 0.8, change(models.ParamDGain, models.AxisRoll, "-10%")),
		recWith("b", 4, 0.5, change(models.ParamDGain, models.AxisRoll, "-10%")),
	}

	out := NewRecommendationDeduplicator().Deduplicate(in)
	if len(out) != 1 {
		t.Fatalf("recs = %d, want 1", len(out))
	}
	if out[0].Changes[0].RecommendedChange != "-10%" {
		t.Errorf("change = %q, want verbatim -10%%", out[0].Changes[0].RecommendedChange)
	}
	if out[0].Title != "rec a" {
		t.Errorf("title rewritten for a verbatim keep: %q", out[0].Title)
	}
}

func TestRecDedupUntouchedKeysPassThrough(t *testing.T) {
	in := []models.Recommendation{
		recWith("a", 6, 0.8,
			change(models.ParamDGain, models.AxisRoll, "-10%"),
			change(models.ParamPGain, models.AxisRoll, "-5%")),
		recWith("b", 4, 0.5, change(models.ParamIGain, models.AxisYaw, "+5%")),
	}

	out := NewRecommendationDeduplicator().Deduplicate(in)
	if len(out) != 2 {
		t.Fatalf("recs = %d, want 2", len(out))
	}
	if len(out[0].Changes) != 2 || len(out[1].Changes) != 1 {
		t.Errorf("changes reshuffled without any shared key")
	}
}

func TestRecDedupNoKeyInTwoRecommendations(t *testing.T) {
	in := []models.Recommendation{
		recWith("a", 6, 0.8,
			change(models.ParamDGain, models.AxisRoll, "-10%"),
			change(models.ParamDtermLowpassHz, "", "-20%")),
		recWith("b", 5, 0.7,
			change(models.ParamDGain, models.AxisRoll, "-5%"),
			change(models.ParamDtermLowpassHz, "", "-10%")),
		recWith("c", 4, 0.6, change(models.ParamDGain, models.AxisPitch, "-10%")),
	}

	out := NewRecommendationDeduplicator().Deduplicate(in)
	seen := make(map[changeKey]int)
	for _, rec := range out {
		for _, ch := range rec.Changes {
			seen[changeKey{Parameter: ch.Parameter, Axis: ch.Axis}]++
		}
	}
	for key, n := range seen {
		if n > 1 {
			t.Errorf("key %+v appears in %d recommendations", key, n)
		}
	}
}

func TestRecDedupUnparsableSoleEntryPassesThrough(t *testing.T) {
	in := []models.Recommendation{
		recWith("a", 6, 0.8, change(models.ParamMotorIdle, "", "raise slightly")),
	}
	out := NewRecommendationDeduplicator().Deduplicate(in)
	if len(out) != 1 || out[0].Changes[0].RecommendedChange != "raise slightly" {
		t.Fatalf("sole unparsable change was not passed through")
	}
}

func TestRecDedupChangelessDedupedByTitle(t *testing.T) {
	a := models.Recommendation{ID: "a", IssueID: "i1", Type: models.RecommendationHardware, Priority: 7, Title: "Check battery health"}
	b := models.Recommendation{ID: "b", IssueID: "i2", Type: models.RecommendationHardware, Priority: 7, Title: "Check battery health"}
	c := models.Recommendation{ID: "c", IssueID: "i3", Type: models.RecommendationHardware, Priority: 7, Title: "Inspect motors"}

	out := NewRecommendationDeduplicator().Deduplicate([]models.Recommendation{a, b, c})
	if len(out) != 2 {
		t.Fatalf("recs = %d, want 2 distinct titles", len(out))
	}
}

func TestRecDedupDropsEmptiedRecommendation(t *testing.T) {
	// b's only change loses its key to a; b must disappear and a absorbs it.
	in := []models.Recommendation{
		recWith("a", 8, 0.9, change(models.ParamGyroLowpassHz, "", "-15%")),
		recWith("b", 3, 0.4, change(models.ParamGyroLowpassHz, "", "-30%")),
	}
	out := NewRecommendationDeduplicator().Deduplicate(in)
	if len(out) != 1 {
		t.Fatalf("recs = %d, want 1", len(out))
	}
	if out[0].ID != "a" {
		t.Errorf("survivor = %s, want a", out[0].ID)
	}
}
