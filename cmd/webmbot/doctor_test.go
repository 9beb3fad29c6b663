package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"webmbot/internal/config"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func statusOf(results []checkResult, name string) (checkResult, bool) {
	for _, r := range results {
		if r.Name == name {
			return r, true
		}
	}
	return checkResult{}, false
}

func TestRunChecks_Healthy(t *testing.T) {
	cfg := config.Defaults()
	cfg.Telegram.Token = "123:abc"
	cfg.General.TempDir = filepath.Join(t.TempDir(), "tmp")
	cfg.Transcoder.Binary = writeScript(t, `echo "ffmpeg version 6.1"`)
	cfg.Subscribers.Enabled = true
	cfg.Subscribers.Backend = "file"
	cfg.Subscribers.Path = filepath.Join(t.TempDir(), "subs.txt")

	results := runChecks(context.Background(), cfg)
	for _, r := range results {
		if r.Status != checkPass {
			t.Errorf("%s: %v %s", r.Name, r.Status, r.Detail)
		}
	}
	tr, ok := statusOf(results, "Transcoder")
	if !ok || tr.Detail != "ffmpeg version 6.1" {
		t.Errorf("transcoder detail: %+v", tr)
	}
}

func TestRunChecks_Failures(t *testing.T) {
	cfg := config.Defaults()
	cfg.General.TempDir = t.TempDir()
	cfg.Transcoder.Binary = filepath.Join(t.TempDir(), "missing-ffmpeg")

	results := runChecks(context.Background(), cfg)
	for _, name := range []string{"Bot token", "Transcoder"} {
		r, ok := statusOf(results, name)
		if !ok || r.Status != checkFail {
			t.Errorf("%s: expected failure, got %+v", name, r)
		}
	}
}

func TestCheckTranscoder_NonZeroExit(t *testing.T) {
	r := checkTranscoder(context.Background(), writeScript(t, "exit 3"))
	if r.Status != checkFail {
		t.Fatalf("expected failure, got %+v", r)
	}
}

func TestWriteCheck_Format(t *testing.T) {
	var sb strings.Builder
	writeCheck(&sb, checkResult{"Temp dir", checkWarn, "/tmp"})
	if !strings.HasPrefix(sb.String(), "  [WARN] Temp dir") {
		t.Fatalf("unexpected line %q", sb.String())
	}
}
