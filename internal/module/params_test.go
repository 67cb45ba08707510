package module_test

import (
	"testing"

	"mixdown/internal/module"
)

func TestParamsCoercion(t *testing.T) {
	params := module.Params{
		"format":   "mp3",
		"start":    1.5,
		"end":      "12.25",
		"bitrate":  float64(192),
		"channels": 2,
		"preview":  "true",
		"loud":     false,
	}

	if got := params.String("format", "wav"); got != "mp3" {
		t.Errorf("String(format) = %q, want mp3", got)
	}
	if got := params.String("missing", "wav"); got != "wav" {
		t.Errorf("String(missing) = %q, want fallback", got)
	}
	if got := params.Float("start", 0); got != 1.5 {
		t.Errorf("Float(start) = %v, want 1.5", got)
	}
	if got := params.Float("end", 0); got != 12.25 {
		t.Errorf("Float(end) = %v, want 12.25 from string", got)
	}
	if got := params.Float("format", 3); got != 3 {
		t.Errorf("Float(format) = %v, want fallback for non-numeric", got)
	}
	if got := params.Int("bitrate", 0); got != 192 {
		t.Errorf("Int(bitrate) = %v, want 192 from JSON number", got)
	}
	if got := params.Int("channels", 0); got != 2 {
		t.Errorf("Int(channels) = %v, want 2", got)
	}
	if got := params.Bool("preview", false); !got {
		t.Error("Bool(preview) = false, want true from string")
	}
	if got := params.Bool("loud", true); got {
		t.Error("Bool(loud) = true, want false")
	}
	if !params.Has("format") || params.Has("missing") {
		t.Error("Has misreported key presence")
	}
}
