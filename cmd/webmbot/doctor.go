package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"webmbot/internal/config"

	"github.com/spf13/cobra"
)

type checkStatus int

const (
	checkPass checkStatus = iota
	checkWarn
	checkFail
)

type checkResult struct {
	Name   string
	Status checkStatus
	Detail string
}

func doctorCmd() *cobra.Command {
	var online bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your webmbot installation",
		Long: `Verifies that the configuration, the transcoder binary, the temp
directory and the subscriber store are usable. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("webmbot doctor v%s\n", version)
			fmt.Printf("----------------------------------------\n\n")

			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				printCheck(checkResult{"Config", checkFail, err.Error()})
				return fmt.Errorf("config check failed")
			}
			printCheck(checkResult{"Config", checkPass, resolveConfigPath()})

			results := runChecks(cmd.Context(), cfg)
			if online {
				results = append(results, checkTelegram(cfg))
			}

			var passed, warned, failed int
			for _, r := range results {
				printCheck(r)
				switch r.Status {
				case checkPass:
					passed++
				case checkWarn:
					warned++
				case checkFail:
					failed++
				}
			}

			fmt.Printf("\n----------------------------------------\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed+1, warned, failed)
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&online, "online", false, "also authenticate the bot token against Telegram")
	return cmd
}

// runChecks covers everything that does not need the network.
func runChecks(ctx context.Context, cfg *config.Config) []checkResult {
	if ctx == nil {
		ctx = context.Background()
	}
	var results []checkResult

	if cfg.Telegram.Token == "" {
		results = append(results, checkResult{"Bot token", checkFail, "not set (TELOXIDE_TOKEN or telegram.token)"})
	} else {
		results = append(results, checkResult{"Bot token", checkPass, "configured"})
	}

	results = append(results, checkTranscoder(ctx, cfg.Transcoder.Binary))

	if err := checkWritableDir(cfg.General.TempDir); err != nil {
		results = append(results, checkResult{"Temp dir", checkFail, err.Error()})
	} else {
		results = append(results, checkResult{"Temp dir", checkPass, cfg.General.TempDir})
	}

	if cfg.Subscribers.Enabled {
		subs, closer, err := openSubscribers(ctx, cfg)
		if err != nil {
			results = append(results, checkResult{"Subscribers", checkFail, err.Error()})
		} else {
			closer.Close()
			results = append(results, checkResult{"Subscribers", checkPass,
				fmt.Sprintf("%s %s (%d)", cfg.Subscribers.Backend, cfg.Subscribers.Path, subs.Len())})
		}
	}

	if cfg.Metrics.Enabled {
		if err := checkListen(cfg.Metrics.Listen); err != nil {
			results = append(results, checkResult{"Metrics listen", checkWarn, fmt.Sprintf("%s may be in use: %v", cfg.Metrics.Listen, err)})
		} else {
			results = append(results, checkResult{"Metrics listen", checkPass, cfg.Metrics.Listen + " available"})
		}
	}

	if cfg.General.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
			results = append(results, checkResult{"Log file", checkWarn, fmt.Sprintf("cannot create log directory: %v", err)})
		} else {
			results = append(results, checkResult{"Log file", checkPass, cfg.General.LogFile})
		}
	}

	return results
}

func checkTranscoder(ctx context.Context, binary string) checkResult {
	path, err := exec.LookPath(binary)
	if err != nil {
		return checkResult{"Transcoder", checkFail, fmt.Sprintf("%s not found: %v", binary, err)}
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "-version").CombinedOutput()
	if err != nil {
		return checkResult{"Transcoder", checkFail, fmt.Sprintf("%s -version: %v", path, err)}
	}
	first, _, _ := strings.Cut(string(out), "\n")
	return checkResult{"Transcoder", checkPass, strings.TrimSpace(first)}
}

func checkWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func checkListen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ln.Close()
}

func checkTelegram(cfg *config.Config) checkResult {
	if cfg.Telegram.Token == "" {
		return checkResult{"Telegram", checkFail, "no token"}
	}
	tg, err := newTelegram(cfg)
	if err != nil {
		return checkResult{"Telegram", checkFail, err.Error()}
	}
	return checkResult{"Telegram", checkPass, "@" + tg.Username()}
}

func printCheck(r checkResult) {
	writeCheck(os.Stdout, r)
}

func writeCheck(w io.Writer, r checkResult) {
	label := map[checkStatus]string{checkPass: "PASS", checkWarn: "WARN", checkFail: "FAIL"}[r.Status]
	fmt.Fprintf(w, "  [%s] %-20s %s\n", label, r.Name, r.Detail)
}
