// Package profile holds per-craft threshold scaling. A QuadProfile multiplies
// each rule's detection thresholds for one issue type: scales above 1 make the
// rule more tolerant, below 1 more sensitive.
package profile

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rotorlab/tune-engine/internal/models"
)

// QuadProfile is a named per-issue-type threshold-scaling table. Read-only
// input to rule severity classification.
type QuadProfile struct {
	Name        string                       `yaml:"name"`
	Description string                       `yaml:"description,omitempty"`
	Scales      map[models.IssueType]float64 `yaml:"scales,omitempty"`
}

// Scale returns the threshold multiplier for an issue type. Nil profiles and
// unlisted types scale by 1.
func (p *QuadProfile) Scale(t models.IssueType) float64 {
	if p == nil {
		return 1.0
	}
	if s, ok := p.Scales[t]; ok && s > 0 {
		return s
	}
	return 1.0
}

// Default returns the neutral profile.
func Default() *QuadProfile {
	return &QuadProfile{Name: "default", Description: "Neutral thresholds"}
}

// Builtin returns the profiles shipped with the engine.
func Builtin() map[string]*QuadProfile {
	return map[string]*QuadProfile{
		"default": Default(),
		"race": {
			Name:        "race",
			Description: "Stiff 5-inch race quad: tighter response expectations",
			Scales: map[models.IssueType]float64{
				models.IssueBounceback:   0.8,
				models.IssueSlowSettling: 0.8,
				models.IssuePropwash:     1.1,
			},
		},
		"cinewhoop": {
			Name:        "cinewhoop",
			Description: "Ducted cinewhoop: more prop noise is normal",
			Scales: map[models.IssueType]float64{
				models.IssueGyroNoise:  1.3,
				models.IssueDTermNoise: 1.3,
				models.IssuePropwash:   1.2,
			},
		},
	}
}

type packFile struct {
	Profiles []QuadProfile `yaml:"profiles"`
}

// LoadPack reads a YAML profile pack and merges it over the builtin set.
// An empty path or missing file yields the builtins alone.
func LoadPack(path string) (map[string]*QuadProfile, error) {
	profiles := Builtin()
	if path == "" {
		return profiles, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return profiles, nil
		}
		return nil, fmt.Errorf("read profile pack: %w", err)
	}
	var pack packFile
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse profile pack: %w", err)
	}
	for i := range pack.Profiles {
		p := pack.Profiles[i]
		if p.Name == "" {
			continue
		}
		profiles[p.Name] = &p
	}
	return profiles, nil
}
