package modules

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"mixdown/internal/media"
	"mixdown/internal/module"
	"mixdown/internal/services"
	"mixdown/internal/storage"
	"mixdown/internal/textutil"
)

// convertFormats maps each target container to its default bitrate. Lossless
// containers carry no bitrate.
var convertFormats = map[string]string{
	"mp3":  "192k",
	"wav":  "",
	"flac": "",
	"ogg":  "128k",
	"m4a":  "192k",
	"aac":  "192k",
}

// convertBitrates are the selectable bitrates for lossy targets.
var convertBitrates = []string{"128k", "192k", "256k", "320k"}

// Convert returns the format conversion module. output_format picks the
// target container and bitrate overrides the per-format default for lossy
// targets.
func Convert(client *media.Client) module.Descriptor {
	return module.Descriptor{
		ID:           "convert",
		DisplayName:  "Convert Audio",
		Description:  "Convert audio files between different formats",
		Icon:         "🔄",
		Accepts:      audioPatterns(),
		Multiplicity: module.Multiple,
		Handler:      &convertHandler{client: client},
	}
}

type convertHandler struct {
	client *media.Client
}

func (h *convertHandler) Process(ctx context.Context, req module.Request) (*module.Output, error) {
	format := strings.ToLower(strings.TrimSpace(req.Params.String("output_format", "")))
	defaultBitrate, ok := convertFormats[format]
	if !ok {
		return nil, services.Wrap(services.ErrInvalidParams, "modules", "convert",
			fmt.Sprintf("output_format %q is not supported", format), nil)
	}

	bitrate := strings.ToLower(strings.TrimSpace(req.Params.String("bitrate", "")))
	switch {
	case bitrate == "":
		bitrate = defaultBitrate
	case defaultBitrate == "":
		// Lossless target; a bitrate makes no sense.
		return nil, services.Wrap(services.ErrInvalidParams, "modules", "convert",
			fmt.Sprintf("bitrate does not apply to %s output", format), nil)
	case !validBitrate(bitrate):
		return nil, services.Wrap(services.ErrInvalidParams, "modules", "convert",
			fmt.Sprintf("bitrate %q is not one of %s", bitrate, strings.Join(convertBitrates, ", ")), nil)
	}

	target := req.Target()
	name := textutil.DeriveOutputName("converted_", target.DisplayName, format)
	output, err := storage.FreePath(req.OutputDir, name)
	if err != nil {
		return nil, err
	}

	err = h.client.Convert(ctx, media.ConvertSpec{
		Input:   target.StoragePath,
		Output:  output,
		Format:  format,
		Bitrate: bitrate,
	})
	if err != nil {
		return nil, err
	}
	return &module.Output{Path: output, DisplayName: filepath.Base(output)}, nil
}

func validBitrate(bitrate string) bool {
	for _, known := range convertBitrates {
		if bitrate == known {
			return true
		}
	}
	return false
}
