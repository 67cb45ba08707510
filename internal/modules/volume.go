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

// loudnormChain is the loudness normalization the dashboard has always
// applied: EBU R128 at -23 LUFS integrated.
const loudnormChain = "loudnorm=i=-23:lra=7:tp=-2:offset=0"

// VolumeControl returns the gain adjustment module. volume_level scales the
// signal (1.0 leaves it untouched, 10.0 is the historical slider maximum)
// and normalize applies loudness normalization before scaling. Output is
// always stereo 44.1 kHz WAV.
func VolumeControl(client *media.Client) module.Descriptor {
	return module.Descriptor{
		ID:           "volume",
		DisplayName:  "Volume Control",
		Description:  "Adjust the volume of audio files",
		Icon:         "🔊",
		Accepts:      selectorPatterns(),
		Multiplicity: module.Multiple,
		Handler:      &volumeHandler{client: client},
	}
}

type volumeHandler struct {
	client *media.Client
}

func (h *volumeHandler) Process(ctx context.Context, req module.Request) (*module.Output, error) {
	level := req.Params.Float("volume_level", 1.0)
	normalize := req.Params.Bool("normalize", false)
	if level <= 0 || level > 10 {
		return nil, services.Wrap(services.ErrInvalidParams, "modules", "volume",
			fmt.Sprintf("volume_level %s outside (0, 10]", formatNumber(level)), nil)
	}

	var filters []string
	if normalize {
		filters = append(filters, loudnormChain)
	}
	if level != 1.0 {
		filters = append(filters, "volume="+formatNumber(level))
	}

	target := req.Target()
	name := textutil.DeriveOutputName("volume_", target.DisplayName, "wav")
	output, err := storage.FreePath(req.OutputDir, name)
	if err != nil {
		return nil, err
	}

	err = h.client.ApplyFilters(ctx, media.FilterSpec{
		Input:      target.StoragePath,
		Output:     output,
		Chain:      strings.Join(filters, ","),
		Quality:    "0",
		SampleRate: 44100,
		Channels:   2,
	})
	if err != nil {
		return nil, err
	}
	return &module.Output{Path: output, DisplayName: filepath.Base(output)}, nil
}
