package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"github.com/oshokin/section-installer/internal/version"
)

// HTTPSource fetches http and https URLs.
type HTTPSource struct {
	client *http.Client
}

// Open issues a GET request and returns the body of a 2xx response.
func (s *HTTPSource) Open(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", version.UserAgent())

	response, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		_ = response.Body.Close()

		return nil, fmt.Errorf("%s, %s: %w", u.Redacted(), response.Status, ErrBadHTTPStatus)
	}

	return response.Body, nil
}

// FileSource reads file:// URLs from the local filesystem.
type FileSource struct{}

// windowsDrivePath matches the path of file:///C:/dir/file URLs.
var windowsDrivePath = regexp.MustCompile(`^/[A-Za-z]:/`)

// Open opens the local file the URL points to.
func (FileSource) Open(_ context.Context, u *url.URL) (io.ReadCloser, error) {
	p := u.Path
	if windowsDrivePath.MatchString(p) {
		p = p[1:]
	}

	return os.Open(filepath.Clean(filepath.FromSlash(p)))
}
