package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotorlab/tune-engine/internal/models"
)

// Per-axis CLI variable prefixes. Axis-scoped parameters expand to one
// variable per axis; global parameters map directly.
var axisParamNames = map[models.Parameter]string{
	models.ParamPGain:       "p",
	models.ParamIGain:       "i",
	models.ParamDGain:       "d",
	models.ParamDMin:        "d_min",
	models.ParamFeedforward: "f",
}

var globalParamNames = map[models.Parameter]string{
	models.ParamGyroLowpassHz:    "gyro_lowpass_hz",
	models.ParamDtermLowpassHz:   "dterm_lowpass_hz",
	models.ParamITermRelaxCutoff: "iterm_relax_cutoff",
	models.ParamAntiGravity:      "anti_gravity_gain",
	models.ParamMotorIdle:        "dshot_idle_value",
}

// CommandName returns the CLI variable a change targets, or "" for unknown
// parameters.
func CommandName(change models.ParameterChange) string {
	if name, ok := axisParamNames[change.Parameter]; ok {
		axis := change.Axis
		if axis == "" {
			axis = models.AxisRoll
		}
		return fmt.Sprintf("%s_%s", name, axis)
	}
	if name, ok := globalParamNames[change.Parameter]; ok {
		return name
	}
	return ""
}

// RenderCommands produces controller "set" command lines for every change
// whose current value is resolvable. Changes with unknown grammar or no
// current value are rendered as comments so nothing is silently dropped.
func RenderCommands(changes []models.ParameterChange) []string {
	lines := make([]string, 0, len(changes))
	for _, change := range changes {
		name := CommandName(change)
		if name == "" {
			continue
		}
		parsed, ok := ParseChange(change.RecommendedChange)
		if !ok {
			lines = append(lines, fmt.Sprintf("# %s: %s", name, change.RecommendedChange))
			continue
		}
		if change.CurrentValue == nil && parsed.Kind != KindAbsolute {
			lines = append(lines, fmt.Sprintf("# %s: %s (current value unknown)", name, change.RecommendedChange))
			continue
		}
		current := 0.0
		if change.CurrentValue != nil {
			current = *change.CurrentValue
		}
		value := parsed.Apply(current)
		lines = append(lines, fmt.Sprintf("set %s = %s", name, formatValue(value)))
	}
	return lines
}

func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
