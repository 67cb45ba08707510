package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeUploads()
	c.normalizeWatch()
	c.normalizeSessions()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		c.Paths.LibraryDir = defaultLibraryDir
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if trimmed := strings.TrimSpace(c.Paths.WatchDir); trimmed != "" {
		if c.Paths.WatchDir, err = expandPath(trimmed); err != nil {
			return fmt.Errorf("paths.watch_dir: %w", err)
		}
	} else {
		c.Paths.WatchDir = ""
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("MIXDOWN_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpegPath = strings.TrimSpace(c.Tools.FFmpegPath)
	if c.Tools.FFmpegPath == "" {
		c.Tools.FFmpegPath = defaultFFmpegPath
	}
	c.Tools.FFprobePath = strings.TrimSpace(c.Tools.FFprobePath)
	if c.Tools.FFprobePath == "" {
		c.Tools.FFprobePath = defaultFFprobePath
	}
}

func (c *Config) normalizeUploads() {
	if c.Uploads.MaxUploadMiB <= 0 {
		c.Uploads.MaxUploadMiB = defaultMaxUploadMiB
	}
	if len(c.Uploads.AllowedExtensions) == 0 {
		c.Uploads.AllowedExtensions = defaultAllowedExtensions()
		return
	}
	exts := make([]string, 0, len(c.Uploads.AllowedExtensions))
	seen := make(map[string]struct{}, len(c.Uploads.AllowedExtensions))
	for _, ext := range c.Uploads.AllowedExtensions {
		normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = defaultAllowedExtensions()
	}
	c.Uploads.AllowedExtensions = exts
}

func (c *Config) normalizeWatch() {
	if c.Watch.SettleSeconds <= 0 {
		c.Watch.SettleSeconds = defaultWatchSettleSeconds
	}
}

func (c *Config) normalizeSessions() {
	if c.Sessions.IdleTimeoutMinutes < 0 {
		c.Sessions.IdleTimeoutMinutes = 0
	}
	if c.Sessions.SweepIntervalMinutes <= 0 {
		c.Sessions.SweepIntervalMinutes = defaultSessionSweepMinutes
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
