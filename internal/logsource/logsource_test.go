package logsource

import (
	"strings"
	"testing"
)

func TestDecodeValidDump(t *testing.T) {
	payload := `{
		"metadata": {"sampleRateHz": 2000},
		"frames": [
			{"timeUs": 0, "throttle": 1400},
			{"timeUs": 500, "throttle": 1410},
			{"timeUs": 1000, "throttle": 1420}
		]
	}`

	dump, err := Decode(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if dump.Metadata.SampleRateHz != 2000 {
		t.Errorf("sample rate = %f, want 2000", dump.Metadata.SampleRateHz)
	}
	if len(dump.Frames) != 3 {
		t.Errorf("frames = %d, want 3", len(dump.Frames))
	}
}

func TestDecodeRejectsBadDumps(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{"metadata": {`},
		{"missing sample rate", `{"metadata": {}, "frames": [{"timeUs": 0}]}`},
		{"no frames", `{"metadata": {"sampleRateHz": 1000}, "frames": []}`},
		{"negative start", `{"metadata": {"sampleRateHz": 1000}, "frames": [{"timeUs": -5}, {"timeUs": 10}]}`},
		{"non-monotonic", `{"metadata": {"sampleRateHz": 1000}, "frames": [{"timeUs": 0}, {"timeUs": 100}, {"timeUs": 100}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tc.payload)); err == nil {
				t.Fatalf("Decode accepted %s", tc.name)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("does/not/exist.json"); err == nil {
		t.Fatalf("Load accepted a missing file")
	}
}
