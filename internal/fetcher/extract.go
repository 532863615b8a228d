package fetcher

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	extractedDirPermissions  = 0o755
	extractedFilePermissions = 0o644
)

// ErrUnsafeEntry is returned for archive entries that escape the destination or are symlinks.
var ErrUnsafeEntry = errors.New("unsafe archive entry")

// Extract unpacks a zip archive into destDir, keeping permission bits.
func Extract(archivePath, destDir string) error {
	reader, err := zip.OpenReader(filepath.Clean(archivePath))
	if err != nil {
		if errors.Is(err, zip.ErrInsecurePath) {
			if reader != nil {
				_ = reader.Close()
			}

			return fmt.Errorf("%w: %w", ErrUnsafeEntry, err)
		}

		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	root := filepath.Clean(destDir)

	for _, file := range reader.File {
		if err = extractFile(file, root); err != nil {
			return err
		}
	}

	return nil
}

func extractFile(file *zip.File, root string) error {
	// Archives built on Windows may use backslashes.
	name := filepath.FromSlash(strings.ReplaceAll(file.Name, `\`, "/"))
	if !filepath.IsLocal(name) {
		return fmt.Errorf("%q: %w", file.Name, ErrUnsafeEntry)
	}

	target := filepath.Join(root, name)
	mode := file.Mode()

	switch {
	case mode&os.ModeSymlink != 0:
		return fmt.Errorf("%q is a symlink: %w", file.Name, ErrUnsafeEntry)
	case file.FileInfo().IsDir():
		return os.MkdirAll(target, extractedDirPermissions)
	}

	if err := os.MkdirAll(filepath.Dir(target), extractedDirPermissions); err != nil {
		return err
	}

	perm := mode.Perm()
	if perm == 0 {
		perm = extractedFilePermissions
	}

	input, err := file.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", file.Name, err)
	}

	defer func() {
		_ = input.Close()
	}()

	output, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	//nolint:gosec // Packages come from the operator's own manifest.
	if _, err = io.Copy(output, input); err != nil {
		_ = output.Close()

		return fmt.Errorf("write %s: %w", file.Name, err)
	}

	return output.Close()
}
