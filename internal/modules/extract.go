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

// extractFormats are the audio containers the extractor can write.
var extractFormats = []string{"wav", "mp3"}

// Extract returns the audio extraction module. It pulls the audio track out
// of a video container (or re-encodes a plain audio file) as stereo
// 44.1 kHz. Video containers only reach the library when the upload
// allow-list is extended to admit them.
func Extract(client *media.Client) module.Descriptor {
	return module.Descriptor{
		ID:           "extract",
		DisplayName:  "Extract Audio",
		Description:  "Extract the audio track from a video file",
		Icon:         "🎬",
		Accepts: []string{
			"*.mp4", "*.mkv", "*.avi", "*.mov", "*.webm",
			"*.wav", "*.mp3", "*.ogg", "*.flac", "*.m4a", "*.wma", "*.aac",
		},
		Multiplicity: module.Single,
		Handler:      &extractHandler{client: client},
	}
}

type extractHandler struct {
	client *media.Client
}

func (h *extractHandler) Process(ctx context.Context, req module.Request) (*module.Output, error) {
	format := strings.ToLower(strings.TrimSpace(req.Params.String("output_format", "wav")))
	if !validExtractFormat(format) {
		return nil, services.Wrap(services.ErrInvalidParams, "modules", "extract",
			fmt.Sprintf("output_format %q is not one of %s", format, strings.Join(extractFormats, ", ")), nil)
	}

	target := req.Target()
	name := textutil.DeriveOutputName("extracted_", target.DisplayName, format)
	output, err := storage.FreePath(req.OutputDir, name)
	if err != nil {
		return nil, err
	}

	err = h.client.Extract(ctx, media.ExtractSpec{
		Input:  target.StoragePath,
		Output: output,
		Format: format,
	})
	if err != nil {
		return nil, err
	}
	return &module.Output{Path: output, DisplayName: filepath.Base(output)}, nil
}

func validExtractFormat(format string) bool {
	for _, known := range extractFormats {
		if format == known {
			return true
		}
	}
	return false
}
