package media

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"mixdown/internal/services"
)

// TrimSpec describes a cut operation. End <= 0 keeps the audio to its end.
// SampleRate and Channels apply to WAV output only and normally come from
// probing the input.
type TrimSpec struct {
	Input      string
	Output     string
	Start      float64
	End        float64
	Format     string
	SampleRate int
	Channels   int
}

// Trim seeks to Start and cuts the audio at End.
func (c *Client) Trim(ctx context.Context, spec TrimSpec) error {
	if spec.End > 0 && spec.End <= spec.Start {
		return services.Wrap(services.ErrInvalidParams, "media", "trim",
			"end time must be greater than start time", nil)
	}

	args := []string{"-ss", formatSeconds(spec.Start), "-i", spec.Input}
	if spec.End > 0 {
		args = append(args, "-af", "atrim=end="+formatSeconds(spec.End-spec.Start))
	}
	args = append(args, encodeArgsForFormat(spec.Format, spec.SampleRate, spec.Channels)...)
	args = append(args, spec.Output)
	return c.runFFmpeg(ctx, "trim", args, spec.Output)
}

// ConvertSpec describes a format conversion.
type ConvertSpec struct {
	Input      string
	Output     string
	Format     string
	Bitrate    string
	SampleRate int
	Channels   int
}

// Convert re-encodes the audio into the requested container.
func (c *Client) Convert(ctx context.Context, spec ConvertSpec) error {
	sampleRate := spec.SampleRate
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	channels := spec.Channels
	if channels <= 0 {
		channels = 2
	}

	args := []string{"-i", spec.Input}
	if strings.EqualFold(spec.Format, "mp3") {
		args = append(args, "-acodec", "libmp3lame")
	}
	if spec.Bitrate != "" {
		args = append(args, "-b:a", spec.Bitrate)
	}
	args = append(args, "-ar", strconv.Itoa(sampleRate), "-ac", strconv.Itoa(channels), spec.Output)
	return c.runFFmpeg(ctx, "convert", args, spec.Output)
}

// MergeSpec describes a concatenation of two or more inputs into one file.
type MergeSpec struct {
	Inputs []string
	Output string
	Format string
}

// Merge concatenates the inputs in order using ffmpeg's concat filter.
func (c *Client) Merge(ctx context.Context, spec MergeSpec) error {
	if len(spec.Inputs) < 2 {
		return services.Wrap(services.ErrInvalidParams, "media", "merge",
			fmt.Sprintf("merge needs at least two inputs, got %d", len(spec.Inputs)), nil)
	}

	args := make([]string, 0, len(spec.Inputs)*2+6)
	for _, input := range spec.Inputs {
		args = append(args, "-i", input)
	}
	args = append(args, "-filter_complex", fmt.Sprintf("concat=n=%d:v=0:a=1", len(spec.Inputs)))
	args = append(args, encodeArgsForFormat(spec.Format, 44100, 2)...)
	args = append(args, spec.Output)
	return c.runFFmpeg(ctx, "merge", args, spec.Output)
}

// FilterSpec describes a filter-chain application with explicit encode
// settings.
type FilterSpec struct {
	Input  string
	Output string

	// Chain is the -af filter graph, for example "loudnorm=i=-23,volume=1.5".
	Chain string

	Codec      string
	Bitrate    string
	Quality    string
	SampleRate int
	Channels   int
}

// ApplyFilters runs the given filter chain over the input. An empty chain
// re-encodes without filtering.
func (c *Client) ApplyFilters(ctx context.Context, spec FilterSpec) error {
	args := []string{"-i", spec.Input}
	if strings.TrimSpace(spec.Chain) != "" {
		args = append(args, "-af", spec.Chain)
	}
	if spec.Codec != "" {
		args = append(args, "-acodec", spec.Codec)
	}
	if spec.Bitrate != "" {
		args = append(args, "-b:a", spec.Bitrate)
	}
	if spec.Quality != "" {
		args = append(args, "-q:a", spec.Quality)
	}
	if spec.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(spec.SampleRate))
	}
	if spec.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(spec.Channels))
	}
	args = append(args, spec.Output)
	return c.runFFmpeg(ctx, "filter", args, spec.Output)
}

// ExtractSpec describes pulling the audio track out of a container.
type ExtractSpec struct {
	Input  string
	Output string
	Format string
}

// Extract drops any video streams and writes the audio alone.
func (c *Client) Extract(ctx context.Context, spec ExtractSpec) error {
	args := []string{"-i", spec.Input, "-vn"}
	if strings.EqualFold(spec.Format, "wav") {
		args = append(args, "-acodec", "pcm_s16le")
	}
	args = append(args, "-ar", "44100", "-ac", "2", spec.Output)
	return c.runFFmpeg(ctx, "extract", args, spec.Output)
}

// encodeArgsForFormat returns the codec arguments the dashboard historically
// used per container. Formats without an explicit policy let ffmpeg pick.
func encodeArgsForFormat(format string, sampleRate, channels int) []string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "wav":
		args := []string{"-acodec", "pcm_s16le"}
		if sampleRate > 0 {
			args = append(args, "-ar", strconv.Itoa(sampleRate))
		}
		if channels > 0 {
			args = append(args, "-ac", strconv.Itoa(channels))
		}
		return args
	case "mp3":
		return []string{"-acodec", "libmp3lame", "-q:a", "2"}
	default:
		return nil
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
