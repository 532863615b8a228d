package installer

import (
	"bytes"
	"context"
	"crypto"
	_ "crypto/sha512" // Registers SHA-512 for crypto.Hash.
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/section-installer/internal/logger"
)

const (
	// executableMode is the permission of the installed binary.
	executableMode = 0o755
	// checksumFunction verifies the copied binary.
	checksumFunction = crypto.SHA512
)

var errHashUnavailable = errors.New("hash function unavailable")

// installExecutable copies the running binary into the data folder and returns its new path.
func (i *Installer) installExecutable(ctx context.Context) (string, error) {
	source, err := i.executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}

	target, err := i.installedExecutable()
	if err != nil {
		return "", err
	}

	if sameFile(source, target) {
		logger.DebugKV(ctx, "Executable already installed", "path", target)

		return target, nil
	}

	if err = copyExecutable(source, target); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Executable installed", "path", target)

	return target, nil
}

// copyExecutable replaces target with the contents of source, verifying the checksum.
func copyExecutable(source, target string) error {
	data, err := os.ReadFile(filepath.Clean(source))
	if err != nil {
		return fmt.Errorf("read executable: %w", err)
	}

	checksum, err := fileChecksum(data)
	if err != nil {
		return err
	}

	if _, err = os.Stat(target); errors.Is(err, os.ErrNotExist) {
		var created *os.File

		created, err = os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY, executableMode)
		if err != nil {
			return fmt.Errorf("create executable: %w", err)
		}

		if err = created.Close(); err != nil {
			return fmt.Errorf("create executable: %w", err)
		}
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: executableMode,
		Checksum:   checksum,
		Hash:       checksumFunction,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("apply executable: %w", err)
	}

	oldFileName := filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".old")
	if _, err = os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	return nil
}

// fileChecksum returns the checksum of data using checksumFunction.
func fileChecksum(data []byte) ([]byte, error) {
	if !checksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := checksumFunction.New()
	if _, err := hasher.Write(data); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}

// sameFile reports whether both paths point to the same existing file.
func sameFile(a, b string) bool {
	first, err := os.Stat(a)
	if err != nil {
		return false
	}

	second, err := os.Stat(b)
	if err != nil {
		return false
	}

	return os.SameFile(first, second)
}
