package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotorlab/tune-engine/internal/export"
	"github.com/rotorlab/tune-engine/internal/models"
)

// changeIncrement is the smallest adjustment worth asking a pilot to make.
const changeIncrement = 0.05

// RecommendationDeduplicator resolves conflicts at (parameter, axis)
// granularity across the whole recommendation set: differently-titled
// recommendations can still fight over the same tunable.
type RecommendationDeduplicator struct{}

func NewRecommendationDeduplicator() *RecommendationDeduplicator {
	return &RecommendationDeduplicator{}
}

type changeKey struct {
	Parameter models.Parameter
	Axis      models.Axis
}

type changeRef struct {
	rec    int // index into recs
	change int // index into recs[rec].Changes
}

// Deduplicate returns a recommendation set in which every (parameter, axis)
// pair appears in at most one surviving recommendation.
func (d *RecommendationDeduplicator) Deduplicate(in []models.Recommendation) []models.Recommendation {
	if len(in) == 0 {
		return nil
	}
	recs := make([]models.Recommendation, len(in))
	for i, r := range in {
		recs[i] = r
		recs[i].Changes = append([]models.ParameterChange(nil), r.Changes...)
	}
	hadChanges := make([]bool, len(recs))
	for i, r := range recs {
		hadChanges[i] = len(r.Changes) > 0
	}

	index := make(map[changeKey][]changeRef)
	order := make([]changeKey, 0)
	for ri, r := range recs {
		for ci, ch := range r.Changes {
			key := changeKey{Parameter: ch.Parameter, Axis: ch.Axis}
			if _, seen := index[key]; !seen {
				order = append(order, key)
			}
			index[key] = append(index[key], changeRef{rec: ri, change: ci})
		}
	}

	drop := make(map[changeRef]bool)
	for _, key := range order {
		refs := index[key]
		if len(refs) < 2 {
			continue
		}
		d.resolveKey(recs, refs, drop)
	}

	out := make([]models.Recommendation, 0, len(recs))
	seenTitles := make(map[string]bool)
	for ri := range recs {
		rec := recs[ri]
		kept := make([]models.ParameterChange, 0, len(rec.Changes))
		rewritten := false
		for ci, ch := range rec.Changes {
			if drop[changeRef{rec: ri, change: ci}] {
				rewritten = true
				continue
			}
			if ch.RecommendedChange != in[ri].Changes[ci].RecommendedChange {
				rewritten = true
			}
			kept = append(kept, ch)
		}
		rec.Changes = kept

		if hadChanges[ri] && len(rec.Changes) == 0 {
			continue
		}
		if !hadChanges[ri] {
			if seenTitles[rec.Title] {
				continue
			}
			seenTitles[rec.Title] = true
		}
		if rewritten {
			rec.Title, rec.Description = balancedSummary(rec.Changes)
		}
		out = append(out, rec)
	}
	return out
}

// resolveKey merges every change touching one (parameter, axis) key onto a
// single winning recommendation.
func (d *RecommendationDeduplicator) resolveKey(recs []models.Recommendation, refs []changeRef, drop map[changeRef]bool) {
	winner := refs[0]
	for _, ref := range refs[1:] {
		w, c := recs[winner.rec], recs[ref.rec]
		if c.Priority > w.Priority || (c.Priority == w.Priority && c.Confidence > w.Confidence) {
			winner = ref
		}
	}

	type weighted struct {
		parsed export.ParsedChange
		conf   float64
	}
	var directional []weighted
	identical := true
	winnerExpr := recs[winner.rec].Changes[winner.change].RecommendedChange
	for _, ref := range refs {
		expr := recs[ref.rec].Changes[ref.change].RecommendedChange
		if expr != winnerExpr {
			identical = false
		}
		parsed, ok := export.ParseChange(expr)
		if !ok || parsed.Sign == 0 {
			continue
		}
		directional = append(directional, weighted{parsed: parsed, conf: recs[ref.rec].Confidence})
	}

	// Losers hand their change and their issue ids to the winner.
	for _, ref := range refs {
		if ref == winner {
			continue
		}
		drop[ref] = true
		absorb(&recs[winner.rec], recs[ref.rec])
	}

	if identical || len(directional) < 2 {
		return
	}

	var num, den float64
	for _, w := range directional {
		num += float64(w.parsed.Sign) * w.parsed.Magnitude * w.conf
		den += w.conf
	}
	if den <= 0 {
		return
	}
	net := export.RoundToIncrement(num/den, changeIncrement)
	if net == 0 {
		// The conflicting changes cancel; the key produces no change.
		drop[winner] = true
		return
	}

	resolved := export.ParsedChange{Kind: directional[0].parsed.Kind, Sign: 1, Magnitude: net}
	if net < 0 {
		resolved.Sign = -1
		resolved.Magnitude = -net
	}
	recs[winner.rec].Changes[winner.change].RecommendedChange = resolved.Format()
	recs[winner.rec].Changes[winner.change].Explanation = "Net of several recommendations weighted by confidence"
}

func absorb(winner *models.Recommendation, loser models.Recommendation) {
	have := make(map[string]bool, len(winner.RelatedIssueIDs)+2)
	have[winner.IssueID] = true
	for _, id := range winner.RelatedIssueIDs {
		have[id] = true
	}
	for _, id := range append([]string{loser.IssueID}, loser.RelatedIssueIDs...) {
		if id == "" || have[id] {
			continue
		}
		have[id] = true
		winner.RelatedIssueIDs = append(winner.RelatedIssueIDs, id)
	}
	sort.Strings(winner.RelatedIssueIDs)
}

// balancedSummary replaces a rewritten recommendation's prose, since the
// original explanation no longer matches the merged numbers.
func balancedSummary(changes []models.ParameterChange) (string, string) {
	names := make([]string, 0, len(changes))
	seen := make(map[models.Parameter]bool, len(changes))
	for _, ch := range changes {
		if seen[ch.Parameter] {
			continue
		}
		seen[ch.Parameter] = true
		names = append(names, string(ch.Parameter))
	}
	title := "Balanced adjustment: " + strings.Join(names, ", ")
	desc := fmt.Sprintf("Several findings pull %s in different directions; this is the "+
		"confidence-weighted net of all of them.", strings.Join(names, " and "))
	return title, desc
}
