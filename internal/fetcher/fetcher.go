package fetcher

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
	"time"

	"github.com/oshokin/section-installer/internal/config"
	"github.com/oshokin/section-installer/internal/logger"
)

var (
	// ErrNoFileName is returned when no file name can be derived from a URL.
	ErrNoFileName = errors.New("unable to derive a file name from url")
	// ErrUnsupportedScheme is returned for URL schemes without a registered source.
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	// ErrBadHTTPStatus is returned when the server answers with a non-2xx status.
	ErrBadHTTPStatus = errors.New("unexpected http status")
)

// Source opens the remote object a URL points to.
type Source interface {
	Open(ctx context.Context, u *url.URL) (io.ReadCloser, error)
}

// Fetcher downloads archives from the registered sources.
type Fetcher struct {
	// sources maps a lower-case URL scheme to its source.
	sources map[string]Source
	// timeout bounds a single download; zero disables it.
	timeout time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout bounds each download, body included.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithHTTPClient serves http and https URLs with the provided client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client == nil {
			return
		}

		source := &HTTPSource{client: client}
		f.sources["http"] = source
		f.sources["https"] = source
	}
}

// WithS3 serves s3://bucket/key URLs with a client built from the settings.
func WithS3(settings config.S3) Option {
	return func(f *Fetcher) {
		f.sources["s3"] = NewS3Source(settings)
	}
}

// WithSource registers a source for a scheme, replacing any previous one.
func WithSource(scheme string, source Source) Option {
	return func(f *Fetcher) {
		f.sources[strings.ToLower(scheme)] = source
	}
}

// New creates a Fetcher with http, https, file and anonymous s3 sources.
func New(opts ...Option) *Fetcher {
	httpSource := &HTTPSource{client: http.DefaultClient}

	f := &Fetcher{
		sources: map[string]Source{
			"http":  httpSource,
			"https": httpSource,
			"file":  FileSource{},
		},
	}

	WithS3(config.S3{})(f)

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// ArchiveName returns the final path component of the URL.
func ArchiveName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}

	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("%q: %w", rawURL, ErrNoFileName)
	}

	return name, nil
}

// Download stores the object behind rawURL in destDir under a unique hidden
// name derived from the URL and returns the local path.
func (f *Fetcher) Download(ctx context.Context, rawURL, destDir string) (string, error) {
	name, err := ArchiveName(rawURL)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}

	source, ok := f.sources[strings.ToLower(u.Scheme)]
	if !ok {
		return "", fmt.Errorf("%q: %w", u.Scheme, ErrUnsupportedScheme)
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	body, err := source.Open(ctx, u)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", rawURL, err)
	}

	defer func() {
		_ = body.Close()
	}()

	// A hidden unique name keeps the archive apart from the entries extracted next to it.
	output, err := os.CreateTemp(filepath.Clean(destDir), "."+name+"-*")
	if err != nil {
		return "", fmt.Errorf("create file for %s in %s: %w", name, destDir, err)
	}

	target := output.Name()

	if _, err = io.Copy(output, body); err != nil {
		_ = output.Close()
		_ = os.Remove(target)

		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}

	if err = output.Close(); err != nil {
		_ = os.Remove(target)

		return "", fmt.Errorf("close %s: %w", target, err)
	}

	logger.DebugKV(ctx, "Downloaded file", "url", rawURL, "path", target)

	return target, nil
}

// FetchAndExtract downloads the archive into destDir, unpacks it in place
// and removes the archive. Failing to remove the archive is only logged.
func (f *Fetcher) FetchAndExtract(ctx context.Context, rawURL, destDir string) error {
	archivePath, err := f.Download(ctx, rawURL, destDir)
	if err != nil {
		return err
	}

	if err = Extract(archivePath, destDir); err != nil {
		return fmt.Errorf("extract %s: %w", archivePath, err)
	}

	if err = os.Remove(archivePath); err != nil {
		logger.WarnKV(ctx, "Unable to remove downloaded archive", "path", archivePath, "error", err)
	}

	return nil
}
