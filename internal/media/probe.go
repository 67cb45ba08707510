package media

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"mixdown/internal/services"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Info is the distilled audio description the modules and API work with.
type Info struct {
	Duration   float64 `json:"duration"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	BitRate    int64   `json:"bitrate"`
	Format     string  `json:"format"`
	Size       int64   `json:"size"`
}

// Probe executes ffprobe against the provided path and decodes the JSON
// response.
func (c *Client) Probe(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, services.Wrap(services.ErrValidation, "media", "probe", "empty path", nil)
	}

	args := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path}

	var out strings.Builder
	var tail tailBuffer
	err := c.exec.Run(ctx, c.ffprobe, args, func(line string) {
		out.WriteString(line)
		out.WriteByte('\n')
		tail.add(line)
	})
	if err != nil {
		detail := tail.String()
		if detail == "" {
			detail = err.Error()
		}
		return Result{}, services.Wrap(services.ErrExternalTool, "media", "probe", detail, err)
	}

	var result Result
	if err := json.Unmarshal([]byte(out.String()), &result); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "media", "probe", "unparsable ffprobe output", err)
	}
	return result, nil
}

// Info probes a file and distills the first audio stream.
func (c *Client) Info(ctx context.Context, path string) (Info, error) {
	result, err := c.Probe(ctx, path)
	if err != nil {
		return Info{}, err
	}
	return result.AudioInfo()
}

// AudioInfo distills the first audio stream of a probe result.
func (r Result) AudioInfo() (Info, error) {
	var audio *Stream
	for i := range r.Streams {
		if strings.EqualFold(r.Streams[i].CodecType, "audio") {
			audio = &r.Streams[i]
			break
		}
	}
	if audio == nil {
		return Info{}, services.Wrap(services.ErrExternalTool, "media", "probe", "no audio stream found", nil)
	}

	info := Info{
		Codec:      audio.CodecName,
		SampleRate: 44100,
		Channels:   2,
		Format:     r.Format.FormatName,
	}
	if rate := parseFloat(audio.SampleRate); rate > 0 {
		info.SampleRate = int(rate)
	}
	if audio.Channels > 0 {
		info.Channels = audio.Channels
	}
	info.Duration = parseFloat(audio.Duration)
	if info.Duration <= 0 {
		info.Duration = parseFloat(r.Format.Duration)
	}
	if rate := parseFloat(audio.BitRate); rate > 0 {
		info.BitRate = int64(rate)
	}
	if size := parseFloat(r.Format.Size); size > 0 {
		info.Size = int64(size)
	}
	return info, nil
}

// DurationSeconds returns the container duration in seconds, or 0 when
// unavailable.
func (r Result) DurationSeconds() float64 {
	d := parseFloat(r.Format.Duration)
	if math.IsNaN(d) || d < 0 {
		return 0
	}
	return d
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return 0
}
