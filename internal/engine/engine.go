// Package engine drives frames through the rule catalog and the
// post-processing stages: issue deduplication, cross-axis correlation,
// temporal trend classification, recommendation generation, and
// recommendation conflict resolution.
package engine

import (
	"log/slog"

	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/profile"
	"github.com/rotorlab/tune-engine/internal/rules"
	"github.com/rotorlab/tune-engine/internal/segment"
)

// progressBatchSize is how many windows are scanned between progress
// callbacks in the cooperative entry point.
const progressBatchSize = 40

// ProgressFunc receives (windows done, windows total) between batches.
type ProgressFunc func(done, total int)

// Engine holds one immutable catalog and the post-processing stages. Safe
// for concurrent AnalyzeLog calls with distinct inputs.
type Engine struct {
	logger    *slog.Logger
	catalog   []rules.Rule
	level     rules.Level
	dedup     *IssueDeduplicator
	crossAxis *CrossAxisCorrelator
	temporal  *TemporalProgressionAnalyzer
	recDedup  *RecommendationDeduplicator
	assembler *ResultAssembler
}

// New builds an engine with the catalog for the given analysis level. A nil
// id generator falls back to random UUIDs.
func New(logger *slog.Logger, ids idgen.Generator, level rules.Level) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if ids == nil {
		ids = idgen.UUID()
	}
	return &Engine{
		logger:    logger,
		catalog:   rules.Catalog(ids, level),
		level:     level,
		dedup:     NewIssueDeduplicator(),
		crossAxis: NewCrossAxisCorrelator(ids),
		temporal:  NewTemporalProgressionAnalyzer(ids),
		recDedup:  NewRecommendationDeduplicator(),
		assembler: NewResultAssembler(),
	}
}

// Level returns the analysis level the engine's catalog was built for.
func (e *Engine) Level() rules.Level { return e.level }

// AnalyzeLog runs the full pipeline over one recording. Deterministic for
// identical frames, metadata, and profile; a short or empty log yields an
// empty result, never an error.
func (e *Engine) AnalyzeLog(frames []models.Frame, meta models.LogMetadata, prof *profile.QuadProfile) models.AnalysisResult {
	return e.analyze(frames, meta, prof, nil)
}

// AnalyzeLogWithProgress is AnalyzeLog with a callback after every window
// batch. The callback must not block for long; it cannot change the result.
func (e *Engine) AnalyzeLogWithProgress(frames []models.Frame, meta models.LogMetadata, prof *profile.QuadProfile, progress ProgressFunc) models.AnalysisResult {
	return e.analyze(frames, meta, prof, progress)
}

func (e *Engine) analyze(frames []models.Frame, meta models.LogMetadata, prof *profile.QuadProfile, progress ProgressFunc) models.AnalysisResult {
	if prof == nil {
		prof = profile.Default()
	}

	windows := segment.SegmentLog(frames, meta)
	e.logger.Debug("log segmented",
		slog.Int("frames", len(frames)),
		slog.Int("windows", len(windows)),
		slog.String("profile", prof.Name))
	if len(windows) == 0 {
		return e.assembler.Assemble(nil, nil, nil, frames)
	}

	raw := e.detect(windows, frames, prof, meta, progress)
	return e.finalize(raw, windows, frames, prof, meta)
}

// detect runs every applicable rule over every window and unions the raw
// issues. O(windows x rules).
func (e *Engine) detect(windows []models.AnalysisWindow, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata, progress ProgressFunc) []models.DetectedIssue {
	var raw []models.DetectedIssue
	for wi, w := range windows {
		for _, rule := range e.catalog {
			if !ruleAppliesTo(rule, w.Axis) {
				continue
			}
			if !rule.Condition(w, frames) {
				continue
			}
			raw = append(raw, rule.Detect(w, frames, prof, meta)...)
		}
		if progress != nil && (wi+1)%progressBatchSize == 0 {
			progress(wi+1, len(windows))
		}
	}
	if progress != nil {
		progress(len(windows), len(windows))
	}
	return raw
}

// finalize runs the post-processing chain over the raw issue stream.
func (e *Engine) finalize(raw []models.DetectedIssue, windows []models.AnalysisWindow, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) models.AnalysisResult {
	issues := e.dedup.Deduplicate(raw)
	crossRecs := e.crossAxis.Correlate(issues)
	issues = append(issues, e.temporal.Analyze(raw, issues, frames)...)

	var recs []models.Recommendation
	for _, rule := range e.catalog {
		recs = append(recs, rule.Recommend(issues, frames, prof, meta)...)
	}
	recs = append(recs, crossRecs...)
	recs = e.recDedup.Deduplicate(recs)

	e.logger.Info("analysis finished",
		slog.Int("rawIssues", len(raw)),
		slog.Int("issues", len(issues)),
		slog.Int("recommendations", len(recs)))

	return e.assembler.Assemble(issues, recs, windows, frames)
}

func ruleAppliesTo(r rules.Rule, axis models.Axis) bool {
	for _, a := range r.Axes() {
		if a == axis {
			return true
		}
	}
	return false
}
