package transcode

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"webmbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// writeTool writes an executable shell script standing in for ffmpeg.
// The script receives: -i <input> <output>.
func writeTool(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write tool: %v", err)
	}
	return path
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.webm")
	if err := os.WriteFile(path, []byte("webm"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestFFmpeg_Transcode_Success(t *testing.T) {
	tool := writeTool(t, `[ "$1" = "-i" ] || exit 3
cp "$2" "$3"`)
	f := NewFFmpeg(FFmpegConfig{Binary: tool, Logger: testLogger()})
	input := writeInput(t)

	out, err := f.Transcode(context.Background(), input)
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if out != input+".mp4" {
		t.Errorf("output path: got %q", out)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output should exist: %v", err)
	}
	if _, err := os.Stat(input); err != nil {
		t.Errorf("input must not be deleted: %v", err)
	}
}

func TestFFmpeg_Transcode_NonZeroExit_TranscodeError(t *testing.T) {
	tool := writeTool(t, `echo "partial" > "$3"
echo "Invalid data found when processing input" >&2
exit 1`)
	f := NewFFmpeg(FFmpegConfig{Binary: tool, Logger: testLogger()})
	input := writeInput(t)

	_, err := f.Transcode(context.Background(), input)
	var terr *domain.TranscodeError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TranscodeError, got %v", err)
	}
	if terr.Input != input {
		t.Errorf("Input: got %q", terr.Input)
	}
	if !strings.Contains(terr.Output, "Invalid data") {
		t.Errorf("tool output should be captured, got %q", terr.Output)
	}
	if _, err := os.Stat(input + ".mp4"); !os.IsNotExist(err) {
		t.Error("partial output should be removed")
	}
}

func TestFFmpeg_Transcode_MissingBinary_TranscodeError(t *testing.T) {
	f := NewFFmpeg(FFmpegConfig{Binary: filepath.Join(t.TempDir(), "nope"), Logger: testLogger()})

	_, err := f.Transcode(context.Background(), writeInput(t))
	var terr *domain.TranscodeError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TranscodeError, got %v", err)
	}
}

func TestFFmpeg_CustomSuffix(t *testing.T) {
	f := NewFFmpeg(FFmpegConfig{OutputSuffix: ".mkv"})
	if got := f.OutputPath("/tmp/a.webm"); got != "/tmp/a.webm.mkv" {
		t.Errorf("OutputPath: got %q", got)
	}
}

func TestTail(t *testing.T) {
	if got := tail("  short  ", 10); got != "short" {
		t.Errorf("tail short: got %q", got)
	}
	if got := tail("0123456789", 3); got != "...789" {
		t.Errorf("tail long: got %q", got)
	}
}
