// Package settings resolves current controller values for recommended
// parameter changes so the UI and command export can show before/after.
package settings

import (
	"github.com/rotorlab/tune-engine/internal/models"
)

// CurrentValue looks up the in-effect value of a tunable from the log's
// metadata. ok is false for parameters the log does not record.
func CurrentValue(meta models.LogMetadata, param models.Parameter, axis models.Axis) (float64, bool) {
	gains := meta.PID[axis.Index()]
	switch param {
	case models.ParamPGain:
		return gains.P, true
	case models.ParamIGain:
		return gains.I, true
	case models.ParamDGain:
		return gains.D, true
	case models.ParamDMin:
		return gains.DMin, gains.DMin > 0
	case models.ParamFeedforward:
		return gains.FF, gains.FF > 0
	case models.ParamGyroLowpassHz:
		return meta.Filters.GyroLowpassHz, meta.Filters.GyroLowpassHz > 0
	case models.ParamDtermLowpassHz:
		return meta.Filters.DtermLowpassHz, meta.Filters.DtermLowpassHz > 0
	default:
		return 0, false
	}
}

// Annotate fills CurrentValue on every change the metadata can resolve. The
// result is valid either way; display layers show the value when present.
func Annotate(recs []models.Recommendation, meta models.LogMetadata) {
	for ri := range recs {
		for ci := range recs[ri].Changes {
			ch := &recs[ri].Changes[ci]
			if ch.CurrentValue != nil {
				continue
			}
			if v, ok := CurrentValue(meta, ch.Parameter, ch.Axis); ok {
				ch.CurrentValue = models.Float(v)
			}
		}
	}
}
