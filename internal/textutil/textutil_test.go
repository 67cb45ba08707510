package textutil_test

import (
	"testing"

	"mixdown/internal/textutil"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"take one.wav", "take one.wav"},
		{"  padded.mp3  ", "padded.mp3"},
		{"a/b\\c:d.wav", "a-b-c-d.wav"},
		{`what?"<>|.flac`, "what.flac"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := textutil.SanitizeFileName(tt.in); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Warm Vinyl", "warm_vinyl"},
		{"1910s Gramophone", "1910s_gramophone"},
		{"__trim--", "trim"},
		{"???", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := textutil.SanitizeToken(tt.in); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDeriveOutputName(t *testing.T) {
	tests := []struct {
		prefix string
		source string
		ext    string
		want   string
	}{
		{"trimmed_", "take.wav", "", "trimmed_take.wav"},
		{"converted_", "take.WAV", "mp3", "converted_take.mp3"},
		{"vinyl_", "/library/s1/uploads/demo.flac", "mp3", "vinyl_demo.mp3"},
		{"volume_", "raw", "wav", "volume_raw.wav"},
		{"", "noext", "", "noext.wav"},
	}
	for _, tt := range tests {
		if got := textutil.DeriveOutputName(tt.prefix, tt.source, tt.ext); got != tt.want {
			t.Errorf("DeriveOutputName(%q, %q, %q) = %q, want %q", tt.prefix, tt.source, tt.ext, got, tt.want)
		}
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"field_recording-03.wav", "Field Recording 03"},
		{"my.demo.track.mp3", "My Demo Track"},
		{"already nice.flac", "Already Nice"},
		{"___.wav", "Untitled"},
	}
	for _, tt := range tests {
		if got := textutil.Title(tt.in); got != tt.want {
			t.Errorf("Title(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
