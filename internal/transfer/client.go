// Package transfer downloads platform-hosted files to local transient storage.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"webmbot/internal/domain"
)

const defaultExtension = ".webm"

// FileLocator resolves a remote file identifier to a download URL.
type FileLocator interface {
	FileURL(ctx context.Context, fileID string) (string, error)
}

// Client fetches remote files by identifier.
type Client struct {
	locator   FileLocator
	http      *http.Client
	dir       string
	extension string
	logger    *slog.Logger
}

type Config struct {
	Locator   FileLocator
	HTTP      *http.Client // optional, defaults to SharedHTTPClient(0)
	Dir       string       // optional, defaults to os.TempDir()
	Extension string       // appended to the file id, defaults to ".webm"
	Logger    *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.HTTP == nil {
		cfg.HTTP = SharedHTTPClient(0)
	}
	if cfg.Dir == "" {
		cfg.Dir = os.TempDir()
	}
	if cfg.Extension == "" {
		cfg.Extension = defaultExtension
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		locator:   cfg.Locator,
		http:      cfg.HTTP,
		dir:       cfg.Dir,
		extension: cfg.Extension,
		logger:    cfg.Logger,
	}
}

// PathFor returns the local path a file id is stored under.
// Two concurrent fetches of the same id share this path.
func (c *Client) PathFor(fileID string) string {
	return filepath.Join(c.dir, filepath.Base(fileID)+c.extension)
}

// Fetch downloads the file to PathFor(fileID). Every failure is a *domain.TransferError.
func (c *Client) Fetch(ctx context.Context, fileID string) (domain.LocalFile, error) {
	fileURL, err := c.locator.FileURL(ctx, fileID)
	if err != nil {
		return domain.LocalFile{}, &domain.TransferError{FileID: fileID, Err: fmt.Errorf("resolve file url: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return domain.LocalFile{}, &domain.TransferError{FileID: fileID, Err: fmt.Errorf("build download request: %w", err)}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.LocalFile{}, &domain.TransferError{FileID: fileID, Err: fmt.Errorf("download: %w", redactURL(err))}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return domain.LocalFile{}, &domain.TransferError{FileID: fileID, Err: fmt.Errorf("download status: %d", resp.StatusCode)}
	}

	path := c.PathFor(fileID)
	n, err := writeFile(path, resp.Body)
	if err != nil {
		return domain.LocalFile{}, &domain.TransferError{FileID: fileID, Err: err}
	}

	c.logger.Debug("file downloaded", "file_id", fileID, "path", path, "bytes", n)
	return domain.LocalFile{Path: path}, nil
}

func writeFile(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	return n, nil
}

// redactURL drops the request URL from transport errors: Telegram file URLs embed the bot token.
func redactURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}

// SharedHTTPClient returns an HTTP client with connection pooling for downloads.
// A zero timeout leaves the request bounded only by its context.
func SharedHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
