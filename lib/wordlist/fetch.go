package wordlist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"github.com/duke-git/lancet/v2/fileutil"
	"github.com/hashicorp/go-getter"

	"github.com/unclesp1d3r/meshcrack/crackstate"
)

const (
	defaultUmask    = 0o022 // Default umask for fetched files
	defaultFileName = "wordlist.txt"
)

// ErrInvalidSource is returned for sources that are neither a URL nor a file path.
var ErrInvalidSource = errors.New("invalid wordlist source")

// IsRemote reports whether src names a remote wordlist rather than a local file.
func IsRemote(src string) bool {
	u, err := url.Parse(src)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetch downloads src into dir and returns the local path. Supported sources are http,
// https and file URLs and plain file paths. A nil tracker disables download progress.
func Fetch(ctx context.Context, src, dir string, tracker getter.ProgressTracker) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", ErrInvalidSource
	}

	if err := fileutil.CreateDir(dir); err != nil && !fileutil.IsExist(dir) {
		return "", fmt.Errorf("creating wordlist directory: %w", err)
	}

	dst := filepath.Join(dir, fileName(src))

	opts := []getter.ClientOption{getter.WithUmask(os.FileMode(defaultUmask))}
	if tracker != nil {
		opts = append(opts, getter.WithProgress(tracker))
	}

	client := &getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Pwd:  dir,
		Mode: getter.ClientModeFile,
		Getters: map[string]getter.Getter{
			"file":  &getter.FileGetter{Copy: true},
			"http":  &getter.HttpGetter{Client: http.DefaultClient},
			"https": &getter.HttpGetter{Client: http.DefaultClient},
		},
		Options: opts,
	}

	_ = client.Configure(opts...) //nolint:errcheck // Client configuration errors are not critical

	crackstate.Logger.Debug("Fetching wordlist", "src", src, "dst", dst)

	if err := client.Get(); err != nil {
		return "", fmt.Errorf("fetching wordlist %q: %w", src, err)
	}

	return dst, nil
}

// fileName picks the local file name for src.
func fileName(src string) string {
	name := src
	if u, err := url.Parse(src); err == nil && u.Path != "" {
		name = u.Path
	}

	base := path.Base(filepath.ToSlash(name))
	if base == "." || base == "/" || base == "" {
		return defaultFileName
	}

	return base
}

// ProgressBar is a getter.ProgressTracker drawing one pb/v3 bar per download.
type ProgressBar struct {
	mu     sync.Mutex
	Output io.Writer // Defaults to stderr
}

// TrackProgress wraps stream so reads advance a progress bar until it is closed.
func (p *ProgressBar) TrackProgress(src string, currentSize, totalSize int64, stream io.ReadCloser) io.ReadCloser {
	p.mu.Lock()
	defer p.mu.Unlock()

	bar := pb.New64(totalSize)
	bar.SetCurrent(currentSize)
	bar.Set(pb.Bytes, true)
	bar.Set("prefix", fileName(src)+" ")

	if p.Output != nil {
		bar.SetWriter(p.Output)
	}

	bar.Start()

	return &readCloser{
		Reader: bar.NewProxyReader(stream),
		close: func() error {
			bar.Finish()
			return stream.Close()
		},
	}
}

type readCloser struct {
	io.Reader
	close func() error
}

func (c *readCloser) Close() error { return c.close() }
