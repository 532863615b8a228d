package fetcher

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/section-installer/internal/version"
)

var errNoSuchKey = errors.New("no such key")

// buildZip returns a zip archive with the provided entries; names ending in "/" become folders.
func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer

	writer := zip.NewWriter(&buf)

	for name, body := range entries {
		header := &zip.FileHeader{Name: name, Method: zip.Deflate}
		if strings.HasSuffix(name, "/") {
			header.SetMode(os.ModeDir | 0o755)
		} else {
			header.SetMode(0o755)
		}

		w, err := writer.CreateHeader(header)
		require.NoError(t, err)

		_, err = io.WriteString(w, body)
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	return buf.Bytes()
}

// TestArchiveName derives local names from URLs and rejects URLs without one.
func TestArchiveName(t *testing.T) {
	t.Parallel()

	name, err := ArchiveName("https://packages.local/pkg/runtime.zip?token=1#frag")
	require.NoError(t, err)
	require.Equal(t, "runtime.zip", name)

	name, err = ArchiveName("s3://bucket/releases/tools.zip")
	require.NoError(t, err)
	require.Equal(t, "tools.zip", name)

	for _, bad := range []string{"https://packages.local", "https://packages.local/", "", "::"} {
		_, err = ArchiveName(bad)
		require.Error(t, err, bad)
	}

	_, err = ArchiveName("https://packages.local/")
	require.ErrorIs(t, err, ErrNoFileName)
}

// TestFetchAndExtract_HTTP downloads, unpacks and removes the archive.
func TestFetchAndExtract_HTTP(t *testing.T) {
	t.Parallel()

	archive := buildZip(t, map[string]string{
		"setup/":           "",
		"setup/install.sh": "#!/bin/sh\nexit 0\n",
		"README.txt":       "hello",
	})

	var userAgent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.UserAgent()
		_, _ = w.Write(archive)
	}))
	defer server.Close()

	dest := t.TempDir()

	err := New(WithHTTPClient(server.Client())).FetchAndExtract(context.Background(), server.URL+"/runtime.zip", dest)
	require.NoError(t, err)
	require.Equal(t, version.UserAgent(), userAgent)

	contents, err := os.ReadFile(filepath.Join(dest, "README.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(contents))

	info, err := os.Stat(filepath.Join(dest, "setup", "install.sh"))
	require.NoError(t, err)

	if runtime.GOOS != "windows" {
		require.NotZero(t, info.Mode().Perm()&0o100)
	}

	_, err = os.Stat(filepath.Join(dest, "runtime.zip"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestDownload_BadStatus fails on non-2xx answers and leaves no file behind.
func TestDownload_BadStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	dest := t.TempDir()

	_, err := New().Download(context.Background(), server.URL+"/missing.zip", dest)
	require.ErrorIs(t, err, ErrBadHTTPStatus)

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	require.Empty(t, entries)
}

// TestDownload_Timeout stops slow downloads once the configured timeout expires.
func TestDownload_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))

	defer server.Close()
	defer close(release)

	_, err := New(WithTimeout(50*time.Millisecond)).Download(context.Background(), server.URL+"/slow.zip", t.TempDir())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestDownload_UnsupportedScheme rejects schemes without a source.
func TestDownload_UnsupportedScheme(t *testing.T) {
	t.Parallel()

	_, err := New().Download(context.Background(), "ftp://packages.local/a.zip", t.TempDir())
	require.ErrorIs(t, err, ErrUnsupportedScheme)
}

// TestFetchAndExtract_FileURL reads archives from local media.
func TestFetchAndExtract_FileURL(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "offline.zip")
	require.NoError(t, os.WriteFile(src, buildZip(t, map[string]string{"install.cmd": "@exit 0"}), 0o600))

	fileURL := (&url.URL{Scheme: "file", Path: filepath.ToSlash(src)}).String()
	if runtime.GOOS == "windows" {
		fileURL = "file:///" + filepath.ToSlash(src)
	}

	dest := t.TempDir()
	require.NoError(t, New().FetchAndExtract(context.Background(), fileURL, dest))

	_, err := os.Stat(filepath.Join(dest, "install.cmd"))
	require.NoError(t, err)
}

// TestFetchAndExtract_EntryNamedLikeArchive keeps an entry sharing the archive file name.
func TestFetchAndExtract_EntryNamedLikeArchive(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "pkg.zip")
	archive := buildZip(t, map[string]string{"pkg.zip": "inner payload", "install.cmd": "@exit 0"})
	require.NoError(t, os.WriteFile(src, archive, 0o600))

	dest := t.TempDir()
	fileURL := (&url.URL{Scheme: "file", Path: filepath.ToSlash(src)}).String()

	if runtime.GOOS == "windows" {
		fileURL = "file:///" + filepath.ToSlash(src)
	}

	require.NoError(t, New().FetchAndExtract(context.Background(), fileURL, dest))

	contents, err := os.ReadFile(filepath.Join(dest, "pkg.zip"))
	require.NoError(t, err)
	require.Equal(t, "inner payload", string(contents))

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

// TestExtract_RejectsEscapingEntries guards against zip-slip archives.
func TestExtract_RejectsEscapingEntries(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	archivePath := filepath.Join(root, "evil.zip")
	require.NoError(t, os.WriteFile(archivePath, buildZip(t, map[string]string{"../escape.txt": "x"}), 0o600))

	dest := filepath.Join(root, "dest")
	require.NoError(t, os.Mkdir(dest, 0o755))

	err := Extract(archivePath, dest)
	require.ErrorIs(t, err, ErrUnsafeEntry)

	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestExtract_CorruptArchive reports archives that cannot be read.
func TestExtract_CorruptArchive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "broken.zip")
	require.NoError(t, os.WriteFile(archivePath, []byte("not a zip"), 0o600))

	require.Error(t, Extract(archivePath, dir))
}

// fakeS3 serves objects from memory.
type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[*params.Bucket+"/"+*params.Key]
	if !ok {
		return nil, errNoSuchKey
	}

	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

// TestFetchAndExtract_S3 reads s3://bucket/key URLs through the S3 client.
func TestFetchAndExtract_S3(t *testing.T) {
	t.Parallel()

	client := &fakeS3{objects: map[string][]byte{
		"releases/tools/tools.zip": buildZip(t, map[string]string{"install.sh": "exit 0"}),
	}}

	f := New(WithSource("s3", NewS3SourceWithClient(client)))
	dest := t.TempDir()

	require.NoError(t, f.FetchAndExtract(context.Background(), "s3://releases/tools/tools.zip", dest))

	_, err := os.Stat(filepath.Join(dest, "install.sh"))
	require.NoError(t, err)

	_, err = f.Download(context.Background(), "s3://releases/tools/absent.zip", dest)
	require.ErrorIs(t, err, errNoSuchKey)

	_, err = f.Download(context.Background(), "s3:///absent.zip", dest)
	require.ErrorIs(t, err, errInvalidS3URL)
}
