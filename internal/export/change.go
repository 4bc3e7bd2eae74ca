// Package export parses recommendation change expressions and renders
// controller command text for the resolved changes.
package export

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ChangeKind identifies which grammar a change expression matched.
type ChangeKind int

const (
	KindUnknown  ChangeKind = iota
	KindPercent             // ±<int>%
	KindRelative            // ±<number>
	KindAbsolute            // bare non-negative number
)

// ParsedChange is the decoded direction and size of a change expression.
// Sign is +1/-1 for directional grammars and 0 for absolute targets.
type ParsedChange struct {
	Kind      ChangeKind
	Sign      int
	Magnitude float64
}

var (
	percentRe  = regexp.MustCompile(`^([+-])(\d+)%$`)
	relativeRe = regexp.MustCompile(`^([+-])(\d+(?:\.\d+)?)$`)
	absoluteRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)$`)
)

// ParseChange decodes expr against the three change grammars. A non-matching
// expression returns ok=false and carries no direction information.
func ParseChange(expr string) (ParsedChange, bool) {
	expr = strings.TrimSpace(expr)
	if m := percentRe.FindStringSubmatch(expr); m != nil {
		mag, _ := strconv.ParseFloat(m[2], 64)
		return ParsedChange{Kind: KindPercent, Sign: signOf(m[1]), Magnitude: mag}, true
	}
	if m := relativeRe.FindStringSubmatch(expr); m != nil {
		mag, _ := strconv.ParseFloat(m[2], 64)
		return ParsedChange{Kind: KindRelative, Sign: signOf(m[1]), Magnitude: mag}, true
	}
	if m := absoluteRe.FindStringSubmatch(expr); m != nil {
		mag, _ := strconv.ParseFloat(m[1], 64)
		return ParsedChange{Kind: KindAbsolute, Sign: 0, Magnitude: mag}, true
	}
	return ParsedChange{}, false
}

func signOf(s string) int {
	if s == "-" {
		return -1
	}
	return 1
}

// RoundToIncrement snaps v to the nearest multiple of inc.
func RoundToIncrement(v, inc float64) float64 {
	if inc <= 0 {
		return v
	}
	return math.Round(v/inc) * inc
}

// Format renders a parsed change back into its canonical textual form.
func (c ParsedChange) Format() string {
	switch c.Kind {
	case KindPercent:
		return fmt.Sprintf("%+d%%", c.Sign*int(math.Round(c.Magnitude)))
	case KindRelative:
		return fmt.Sprintf("%+g", float64(c.Sign)*c.Magnitude)
	case KindAbsolute:
		return strconv.FormatFloat(c.Magnitude, 'f', -1, 64)
	default:
		return ""
	}
}

// Apply resolves the change against a current value. Absolute changes replace
// the value; percent and relative changes adjust it.
func (c ParsedChange) Apply(current float64) float64 {
	switch c.Kind {
	case KindPercent:
		return current * (1.0 + float64(c.Sign)*c.Magnitude/100.0)
	case KindRelative:
		return current + float64(c.Sign)*c.Magnitude
	case KindAbsolute:
		return c.Magnitude
	default:
		return current
	}
}
