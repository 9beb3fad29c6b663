// Package transcode converts local media files by shelling out to an external tool.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"webmbot/internal/domain"
)

const (
	defaultBinary       = "ffmpeg"
	defaultOutputSuffix = ".mp4"
	maxOutputBytes      = 4096
)

// Transcoder converts the file at input and returns the path of the result.
type Transcoder interface {
	Transcode(ctx context.Context, input string) (string, error)
}

// FFmpeg runs `<binary> -i <input> <input><suffix>`.
type FFmpeg struct {
	binary  string
	suffix  string
	timeout time.Duration
	logger  *slog.Logger
}

type FFmpegConfig struct {
	Binary         string // defaults to "ffmpeg"
	OutputSuffix   string // defaults to ".mp4"
	TimeoutSeconds int    // 0 = no timeout
	Logger         *slog.Logger
}

func NewFFmpeg(cfg FFmpegConfig) *FFmpeg {
	if cfg.Binary == "" {
		cfg.Binary = defaultBinary
	}
	if cfg.OutputSuffix == "" {
		cfg.OutputSuffix = defaultOutputSuffix
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &FFmpeg{
		binary:  cfg.Binary,
		suffix:  cfg.OutputSuffix,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		logger:  cfg.Logger,
	}
}

// OutputPath is the sibling file the tool writes for input.
func (f *FFmpeg) OutputPath(input string) string {
	return input + f.suffix
}

// Transcode blocks until the tool exits. A launch failure or non-zero exit is a
// *domain.TranscodeError and leaves no output file behind.
func (f *FFmpeg) Transcode(ctx context.Context, input string) (string, error) {
	output := f.OutputPath(input)

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, f.binary, "-i", input, output)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if rmErr := os.Remove(output); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			f.logger.Warn("cannot remove partial transcode output", "path", output, "err", rmErr)
		}
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return "", &domain.TranscodeError{Input: input, Output: tail(string(out), maxOutputBytes), Err: err}
	}

	f.logger.Debug("transcode finished", "input", input, "output", output, "duration", time.Since(start))
	return output, nil
}

// tail keeps the last n bytes; ffmpeg prints the reason for failure at the end.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
