package rules

import (
	"github.com/rotorlab/tune-engine/internal/idgen"
)

// Level selects how much of the catalog runs. Quick skips the
// spectral-heavy hardware rules; deep additionally relaxes event gating.
type Level string

const (
	LevelQuick    Level = "quick"
	LevelStandard Level = "standard"
	LevelDeep     Level = "deep"
)

// Catalog builds the immutable rule list for one engine instance. Iteration
// order is registration order; it affects only the order recommendations are
// generated in, never the final ranked output.
func Catalog(ids idgen.Generator, level Level) []Rule {
	if level == "" {
		level = LevelStandard
	}
	deep := level == LevelDeep

	catalog := []Rule{
		newOscillationRule(ids),
		newDTermNoiseRule(ids),
		newGyroNoiseRule(ids),
		newBouncebackRule(ids, deep),
		newPropwashRule(ids, deep),
		newMotorSaturationRule(ids),
		newITermWindupRule(ids),
		newFeedforwardRule(ids),
	}
	if level != LevelQuick {
		catalog = append(catalog,
			newFrameResonanceRule(ids),
			newRPMNoiseRule(ids),
			newBearingWearRule(ids),
		)
	}
	catalog = append(catalog,
		newMotorImbalanceRule(ids),
		newCGOffsetRule(ids),
		newDesyncRule(ids),
		newVoltageSagRule(ids),
		newAdvisoryRule(ids),
	)
	return catalog
}
