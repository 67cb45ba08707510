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

// Trim returns the cut-region module. It operates on one file at a time;
// start_time and end_time are seconds, and end_time <= 0 keeps the audio to
// its end. The output stays in the source format unless output_format says
// otherwise.
func Trim(client *media.Client) module.Descriptor {
	return module.Descriptor{
		ID:           "trim",
		DisplayName:  "Trim Audio",
		Description:  "Trim audio files by selecting start and end times",
		Icon:         "✂️",
		Accepts:      audioPatterns(),
		Multiplicity: module.Single,
		Handler:      &trimHandler{client: client},
	}
}

type trimHandler struct {
	client *media.Client
}

func (h *trimHandler) Process(ctx context.Context, req module.Request) (*module.Output, error) {
	start := req.Params.Float("start_time", 0)
	end := req.Params.Float("end_time", 0)
	if start < 0 {
		return nil, services.Wrap(services.ErrInvalidParams, "modules", "trim",
			"start_time must not be negative", nil)
	}
	if end > 0 && end <= start {
		return nil, services.Wrap(services.ErrInvalidParams, "modules", "trim",
			fmt.Sprintf("end_time %s must be greater than start_time %s", formatNumber(end), formatNumber(start)), nil)
	}

	target := req.Target()
	format := strings.ToLower(strings.TrimSpace(req.Params.String("output_format", "")))
	if format == "" {
		format = textutil.Ext(target.StoragePath)
	}

	spec := media.TrimSpec{
		Input:  target.StoragePath,
		Start:  start,
		End:    end,
		Format: format,
	}
	if format == "wav" {
		// WAV output keeps the source's sample rate and channel count.
		info, err := h.client.Info(ctx, target.StoragePath)
		if err != nil {
			return nil, err
		}
		spec.SampleRate = info.SampleRate
		spec.Channels = info.Channels
	}

	name := textutil.DeriveOutputName("trimmed_", target.DisplayName, format)
	output, err := storage.FreePath(req.OutputDir, name)
	if err != nil {
		return nil, err
	}
	spec.Output = output

	if err := h.client.Trim(ctx, spec); err != nil {
		return nil, err
	}
	return &module.Output{Path: output, DisplayName: filepath.Base(output)}, nil
}
