package modules

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"mixdown/internal/media"
	"mixdown/internal/module"
	"mixdown/internal/preset"
	"mixdown/internal/services"
	"mixdown/internal/storage"
	"mixdown/internal/textutil"
)

// VinylEffect returns the vintage record simulation module. Parameters start
// from the named preset (or the stock defaults when none is given) and
// individual keys override from there. Output is always 192k stereo MP3.
func VinylEffect(client *media.Client, presets *preset.Catalog) module.Descriptor {
	return module.Descriptor{
		ID:           "vinyl",
		DisplayName:  "Vinyl Effect",
		Description:  "Apply vintage vinyl record effects to audio",
		Icon:         "🎵",
		Accepts:      selectorPatterns(),
		Multiplicity: module.Multiple,
		Handler:      &vinylHandler{client: client, presets: presets},
	}
}

type vinylHandler struct {
	client  *media.Client
	presets *preset.Catalog
}

func (h *vinylHandler) Process(ctx context.Context, req module.Request) (*module.Output, error) {
	params, prefix, err := h.resolveParams(req.Params)
	if err != nil {
		return nil, err
	}

	chain := strings.Join([]string{
		"highpass=f=" + formatNumber(params.HighpassFreq),
		"lowpass=f=" + formatNumber(params.LowpassFreq),
		"areverse",
		fmt.Sprintf("aecho=%s:0.88:%s:0.4", formatNumber(params.EchoGain), formatNumber(params.EchoDelay)),
		"areverse",
		fmt.Sprintf("tremolo=f=%s:d=%s", formatNumber(params.TremoloFreq), formatNumber(params.TremoloDepth)),
		"equalizer=f=100:width_type=o:width=2:g=" + formatNumber(params.EQLow),
		"equalizer=f=3000:width_type=o:width=2:g=" + formatNumber(params.EQHigh),
		"volume=" + formatNumber(params.Volume),
	}, ",")

	target := req.Target()
	name := textutil.DeriveOutputName(prefix, target.DisplayName, "mp3")
	output, err := storage.FreePath(req.OutputDir, name)
	if err != nil {
		return nil, err
	}

	err = h.client.ApplyFilters(ctx, media.FilterSpec{
		Input:    target.StoragePath,
		Output:   output,
		Chain:    chain,
		Codec:    "libmp3lame",
		Bitrate:  "192k",
		Channels: 2,
	})
	if err != nil {
		return nil, err
	}
	return &module.Output{Path: output, DisplayName: filepath.Base(output)}, nil
}

// resolveParams layers the request parameters over the named preset, or over
// the stock defaults when no preset is given.
func (h *vinylHandler) resolveParams(p module.Params) (preset.Preset, string, error) {
	base := preset.Defaults()
	prefix := "vinyl_"

	if name := strings.TrimSpace(p.String("preset", "")); name != "" {
		found, ok := h.presets.Get(name)
		if !ok {
			return base, "", services.Wrap(services.ErrInvalidParams, "modules", "vinyl",
				fmt.Sprintf("unknown preset %q", name), nil)
		}
		base = found
		if token := textutil.SanitizeToken(name); token != "" {
			prefix = token + "_"
		}
	}

	base.HighpassFreq = p.Float("highpass_freq", base.HighpassFreq)
	base.LowpassFreq = p.Float("lowpass_freq", base.LowpassFreq)
	base.EchoGain = p.Float("echo_gain", base.EchoGain)
	base.EchoDelay = p.Float("echo_delay", base.EchoDelay)
	base.TremoloFreq = p.Float("tremolo_freq", base.TremoloFreq)
	base.TremoloDepth = p.Float("tremolo_depth", base.TremoloDepth)
	base.EQLow = p.Float("eq_low", base.EQLow)
	base.EQHigh = p.Float("eq_high", base.EQHigh)
	base.Volume = p.Float("volume", base.Volume)

	if base.HighpassFreq <= 0 || base.LowpassFreq <= base.HighpassFreq {
		return base, "", services.Wrap(services.ErrInvalidParams, "modules", "vinyl",
			"lowpass_freq must be greater than highpass_freq and both positive", nil)
	}
	if base.TremoloDepth < 0 || base.TremoloDepth > 1 {
		return base, "", services.Wrap(services.ErrInvalidParams, "modules", "vinyl",
			fmt.Sprintf("tremolo_depth %s outside [0, 1]", formatNumber(base.TremoloDepth)), nil)
	}
	return base, prefix, nil
}
