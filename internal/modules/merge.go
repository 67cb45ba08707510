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

// mergeFormats are the containers the merge module can write.
var mergeFormats = []string{"mp3", "wav", "flac", "ogg", "m4a"}

// Merge returns the concatenation module. It folds the whole batch into one
// file in selection order; output_name and output_format control where the
// result lands.
func Merge(client *media.Client) module.Descriptor {
	return module.Descriptor{
		ID:           "merge",
		DisplayName:  "Merge Audio",
		Description:  "Merge multiple audio files into a single file",
		Icon:         "🔊",
		Accepts:      selectorPatterns(),
		Multiplicity: module.Multiple,
		Combines:     true,
		Handler:      &mergeHandler{client: client},
	}
}

type mergeHandler struct {
	client *media.Client
}

func (h *mergeHandler) Process(ctx context.Context, req module.Request) (*module.Output, error) {
	format := strings.ToLower(strings.TrimSpace(req.Params.String("output_format", "wav")))
	if !validMergeFormat(format) {
		return nil, services.Wrap(services.ErrInvalidParams, "modules", "merge",
			fmt.Sprintf("output_format %q is not one of %s", format, strings.Join(mergeFormats, ", ")), nil)
	}
	outputName := strings.TrimSpace(req.Params.String("output_name", ""))
	if outputName == "" {
		outputName = "merged_audio"
	}

	name := textutil.DeriveOutputName("", outputName+"."+format, format)
	output, err := storage.FreePath(req.OutputDir, name)
	if err != nil {
		return nil, err
	}

	inputs := make([]string, 0, len(req.Targets))
	for _, target := range req.Targets {
		inputs = append(inputs, target.StoragePath)
	}

	err = h.client.Merge(ctx, media.MergeSpec{
		Inputs: inputs,
		Output: output,
		Format: format,
	})
	if err != nil {
		return nil, err
	}
	return &module.Output{Path: output, DisplayName: filepath.Base(output)}, nil
}

func validMergeFormat(format string) bool {
	for _, known := range mergeFormats {
		if format == known {
			return true
		}
	}
	return false
}
