package config

const (
	defaultLibraryDir          = "~/.local/share/mixdown/library"
	defaultStateDir            = "~/.local/share/mixdown/state"
	defaultLogDir              = "~/.local/share/mixdown/logs"
	defaultAPIBind             = "127.0.0.1:7601"
	defaultFFmpegPath          = "ffmpeg"
	defaultFFprobePath         = "ffprobe"
	defaultMaxUploadMiB        = 100
	defaultWatchSettleSeconds  = 2
	defaultSessionSweepMinutes = 10
	defaultSessionIdleMinutes  = 0
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

func defaultAllowedExtensions() []string {
	return []string{"wav", "mp3", "ogg", "flac", "m4a", "wma", "aac"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Tools: Tools{
			FFmpegPath:  defaultFFmpegPath,
			FFprobePath: defaultFFprobePath,
		},
		Uploads: Uploads{
			MaxUploadMiB:      defaultMaxUploadMiB,
			AllowedExtensions: defaultAllowedExtensions(),
		},
		Watch: Watch{
			SettleSeconds: defaultWatchSettleSeconds,
		},
		Sessions: Sessions{
			IdleTimeoutMinutes:   defaultSessionIdleMinutes,
			SweepIntervalMinutes: defaultSessionSweepMinutes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
