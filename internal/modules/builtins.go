package modules

import (
	"strconv"

	"mixdown/internal/media"
	"mixdown/internal/module"
	"mixdown/internal/preset"
)

// RegisterBuiltins registers the stock modules on the registry in their
// canonical listing order.
func RegisterBuiltins(registry *module.Registry, client *media.Client, presets *preset.Catalog) error {
	for _, desc := range []module.Descriptor{
		Trim(client),
		VolumeControl(client),
		Convert(client),
		Merge(client),
		VinylEffect(client, presets),
		Extract(client),
	} {
		if err := registry.Register(desc); err != nil {
			return err
		}
	}
	return nil
}

// audioPatterns matches the audio containers accepted at the upload
// boundary.
func audioPatterns() []string {
	return []string{"*.wav", "*.mp3", "*.ogg", "*.flac", "*.m4a", "*.wma", "*.aac"}
}

// selectorPatterns matches the narrower set the dashboard's file pickers
// historically offered for multi-file effects.
func selectorPatterns() []string {
	return []string{"*.wav", "*.mp3", "*.ogg", "*.flac", "*.m4a", "*.aac"}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
