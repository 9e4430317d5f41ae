// Package fetch retrieves request assets into a scratch directory. Remote
// assets are downloaded over http(s); local paths and file:// URLs are linked
// or copied.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"clipforge/internal/errs"
)

// Default extensions when the reference carries none.
const (
	DefaultVideoExt = ".mp4"
	DefaultAudioExt = ".mp3"
)

// ErrEmpty is returned when an asset has no content.
var ErrEmpty = errors.New("payload is empty")

// ErrTooLarge is returned when an asset exceeds the configured size cap.
var ErrTooLarge = errors.New("payload exceeds size limit")

// ErrNotRemote is returned for local references when only URLs are allowed.
var ErrNotRemote = errors.New("only http(s) URLs are accepted")

// Fetcher retrieves assets. It never retries.
type Fetcher struct {
	Client     *http.Client
	// MaxBytes caps a single asset when positive.
	MaxBytes   int64
	// RemoteOnly refuses local paths and file:// URLs.
	RemoteOnly bool
	Logger     *slog.Logger
}

// New returns a fetcher whose HTTP client gives up after timeout.
func New(timeout time.Duration, maxBytes int64, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{
		Client:   &http.Client{Timeout: timeout},
		MaxBytes: maxBytes,
		Logger:   logger,
	}
}

// Fetch stores ref as dir/name+ext and returns the path. ext comes from the
// reference and falls back to defaultExt. Failures are AssetErrors naming ref.
func (f *Fetcher) Fetch(ctx context.Context, ref, dir, name, defaultExt string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errs.Asset("fetch", name, errors.New("no reference given"))
	}
	if f.RemoteOnly && !IsRemote(ref) {
		return "", errs.Asset("fetch", ref, ErrNotRemote)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure fetch dir: %w", err)
	}
	dest := filepath.Join(dir, name+Ext(ref, defaultExt))

	start := time.Now()
	var (
		size int64
		err  error
	)
	if IsRemote(ref) {
		size, err = f.download(ctx, ref, dest)
	} else {
		size, err = f.copyLocal(ref, dest)
	}
	if err != nil {
		f.Logger.Error("fetch failed", "asset", ref, "kind", errs.KindAsset.String(), "err", err)
		return "", errs.Asset("fetch", ref, err)
	}
	f.Logger.Debug("fetched", "asset", ref, "dest", dest, "bytes", size, "elapsed", time.Since(start))
	return dest, nil
}

func (f *Fetcher) download(ctx context.Context, ref, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return 0, err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if f.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.MaxBytes+1)
	}
	n, err := writeAtomic(body, dest)
	if err != nil {
		return 0, err
	}
	return n, f.checkSize(n, dest)
}

func (f *Fetcher) copyLocal(ref, dest string) (int64, error) {
	src := ref
	if u, err := url.Parse(ref); err == nil && u.Scheme == "file" {
		src = u.Path
	}
	info, err := os.Stat(src)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", src)
	}
	if err := f.checkSize(info.Size(), ""); err != nil {
		return 0, err
	}
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove existing file: %w", err)
	}
	if err := linkOrCopy(src, dest); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (f *Fetcher) checkSize(n int64, written string) error {
	var err error
	switch {
	case n == 0:
		err = ErrEmpty
	case f.MaxBytes > 0 && n > f.MaxBytes:
		err = fmt.Errorf("%w of %d bytes", ErrTooLarge, f.MaxBytes)
	}
	if err != nil && written != "" {
		os.Remove(written)
	}
	return err
}

// IsRemote reports whether ref is an http(s) URL.
func IsRemote(ref string) bool {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,5}$`)

// Ext returns the lowercased extension of ref's path, ignoring any query,
// or def when there is no plausible one.
func Ext(ref, def string) string {
	p := ref
	if u, err := url.Parse(strings.TrimSpace(ref)); err == nil && u.Scheme != "" {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(filepath.ToSlash(p)))
	if !extPattern.MatchString(ext) {
		return def
	}
	return ext
}

func linkOrCopy(src, dest string) error {
	if err := os.Link(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()
	_, err = writeAtomic(in, dest)
	return err
}

// writeAtomic streams r into a temp file next to dest and renames it into
// place, so dest is either complete or absent.
func writeAtomic(r io.Reader, dest string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("create temp dest: %w", err)
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("copy data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("close temp dest: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("chmod temp dest: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("rename temp dest: %w", err)
	}
	return n, nil
}
