package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateUploads(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateSessions(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.LibraryDir == c.Paths.StateDir {
		return errors.New("paths.library_dir and paths.state_dir must differ")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateTools() error {
	if strings.TrimSpace(c.Tools.FFmpegPath) == "" {
		return errors.New("tools.ffmpeg_path must be set")
	}
	if strings.TrimSpace(c.Tools.FFprobePath) == "" {
		return errors.New("tools.ffprobe_path must be set")
	}
	return nil
}

func (c *Config) validateUploads() error {
	if c.Uploads.MaxUploadMiB <= 0 {
		return errors.New("uploads.max_upload_mib must be positive")
	}
	if len(c.Uploads.AllowedExtensions) == 0 {
		return errors.New("uploads.allowed_extensions must include at least one extension")
	}
	for _, ext := range c.Uploads.AllowedExtensions {
		if strings.ContainsAny(ext, "./\\") {
			return fmt.Errorf("uploads.allowed_extensions entry %q must be a bare extension", ext)
		}
	}
	return nil
}

func (c *Config) validateWatch() error {
	if !c.Watch.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Paths.WatchDir) == "" {
		return errors.New("paths.watch_dir must be set when watch.enabled is true")
	}
	if c.Watch.SettleSeconds <= 0 {
		return errors.New("watch.settle_seconds must be positive")
	}
	return nil
}

func (c *Config) validateSessions() error {
	if c.Sessions.IdleTimeoutMinutes < 0 {
		return errors.New("sessions.idle_timeout_minutes must be >= 0")
	}
	if c.Sessions.SweepIntervalMinutes <= 0 {
		return errors.New("sessions.sweep_interval_minutes must be positive")
	}
	return nil
}
