// Package logsource loads decoded telemetry dumps. The raw blackbox binary
// format is decoded upstream; this package only validates the decoded frame
// stream before it reaches the analysis.
package logsource

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/utils"
)

// Dump is the on-disk shape of a decoded recording.
type Dump struct {
	Metadata models.LogMetadata `json:"metadata"`
	Frames   []models.Frame     `json:"frames"`
}

// Decode reads and validates one dump from r.
func Decode(r io.Reader) (*Dump, error) {
	var dump Dump
	dec := json.NewDecoder(r)
	if err := dec.Decode(&dump); err != nil {
		return nil, utils.NewAppError("logsource.Decode", "malformed log dump", err)
	}
	if err := validate(&dump); err != nil {
		return nil, err
	}
	return &dump, nil
}

// Load reads a dump from a file.
func Load(path string) (*Dump, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.NewAppError("logsource.Load", "open log dump", err)
	}
	defer f.Close()
	return Decode(f)
}

func validate(dump *Dump) error {
	if dump.Metadata.SampleRateHz <= 0 {
		return utils.NewAppError("logsource.Decode", "metadata missing sample rate", nil)
	}
	if len(dump.Frames) == 0 {
		return utils.NewAppError("logsource.Decode", "log contains no frames", nil)
	}
	if dump.Frames[0].TimeUs < 0 {
		return utils.NewAppError("logsource.Decode", "timestamps must be zero-based", nil)
	}
	for i := 1; i < len(dump.Frames); i++ {
		if dump.Frames[i].TimeUs <= dump.Frames[i-1].TimeUs {
			return utils.NewAppError("logsource.Decode",
				fmt.Sprintf("non-monotonic timestamp at frame %d", i), nil)
		}
	}
	return nil
}
