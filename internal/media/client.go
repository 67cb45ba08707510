package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mixdown/internal/config"
	"mixdown/internal/logging"
	"mixdown/internal/services"
)

const errorTailLines = 12

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps ffmpeg and ffprobe invocations.
type Client struct {
	ffmpeg  string
	ffprobe string
	exec    Executor
	logger  *slog.Logger
}

// New constructs a media client from the configured tool paths.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	client := &Client{
		ffmpeg:  cfg.FFmpegBinary(),
		ffprobe: cfg.FFprobeBinary(),
		exec:    commandExecutor{},
		logger:  logging.NewComponentLogger(logger, "media"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// tailBuffer keeps the last few tool output lines for error reporting.
type tailBuffer struct {
	lines []string
}

func (t *tailBuffer) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > errorTailLines {
		t.lines = t.lines[1:]
	}
}

func (t *tailBuffer) String() string {
	return strings.Join(t.lines, "; ")
}

// runFFmpeg executes ffmpeg with the common global flags prepended and
// verifies the expected output landed on disk.
func (c *Client) runFFmpeg(ctx context.Context, operation string, args []string, output string) error {
	if strings.TrimSpace(output) == "" {
		return services.Wrap(services.ErrValidation, "media", operation, "output path must not be empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	full := append([]string{"-hide_banner", "-loglevel", "error", "-y"}, args...)
	c.logger.Debug("running ffmpeg",
		logging.String("operation", operation),
		logging.String("output", filepath.Base(output)),
		logging.Int("arg_count", len(full)))

	var tail tailBuffer
	if err := c.exec.Run(ctx, c.ffmpeg, full, tail.add); err != nil {
		// ffmpeg may leave a partial file behind; the name must stay free
		// for a retry.
		_ = os.Remove(output)
		detail := tail.String()
		if detail == "" {
			detail = err.Error()
		}
		return services.Wrap(services.ErrExternalTool, "media", operation, detail, err)
	}

	if _, err := os.Stat(output); errors.Is(err, os.ErrNotExist) {
		return services.Wrap(services.ErrExternalTool, "media", operation,
			fmt.Sprintf("ffmpeg produced no output at %s", filepath.Base(output)), nil)
	}
	return nil
}
