package ledger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/oshokin/section-installer/internal/config"
)

// Ledger defines the checkpoint operations the executor depends on.
type Ledger interface {
	IsCheckpointed(ctx context.Context, name string) (bool, error)
	Checkpoint(ctx context.Context, name string) error
}

// FileLedger keeps the ledger as a plain text file, one section name per line.
type FileLedger struct {
	// path is the filesystem location of the ledger file.
	path string
	// mu serialises reads and appends within the process.
	mu sync.Mutex
}

// ErrEmptySectionName is returned when a ledger operation gets an empty name.
var ErrEmptySectionName = errors.New("section name is empty")

// NewFileLedger creates a ledger stored at the provided path.
func NewFileLedger(path string) *FileLedger {
	return &FileLedger{
		path: filepath.Clean(path),
	}
}

// Path returns the ledger file location.
func (l *FileLedger) Path() string {
	return l.path
}

// IsCheckpointed reports whether the name has been recorded.
// A missing ledger file means nothing has been started yet.
func (l *FileLedger) IsCheckpointed(_ context.Context, name string) (bool, error) {
	if name == "" {
		return false, ErrEmptySectionName
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("open ledger: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.TrimSuffix(scanner.Text(), "\r") == name {
			return true, nil
		}
	}

	if err = scanner.Err(); err != nil {
		return false, fmt.Errorf("read ledger: %w", err)
	}

	return false, nil
}

// Checkpoint appends the name to the ledger and flushes it to disk.
// It never deduplicates: lookups stop at the first match.
func (l *FileLedger) Checkpoint(_ context.Context, name string) error {
	if name == "" {
		return ErrEmptySectionName
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, config.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	if _, err = file.WriteString(name + "\n"); err != nil {
		_ = file.Close()

		return fmt.Errorf("append to ledger: %w", err)
	}

	// The entry must be durable before the section starts: the next step may reboot.
	if err = file.Sync(); err != nil {
		_ = file.Close()

		return fmt.Errorf("sync ledger: %w", err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}

	return nil
}

// Entries returns every recorded name in append order.
func (l *FileLedger) Entries(_ context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	contents, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read ledger: %w", err)
	}

	var entries []string

	for line := range strings.Lines(string(contents)) {
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			entries = append(entries, line)
		}
	}

	return entries, nil
}

// Create makes an empty ledger unless one already exists.
func (l *FileLedger) Create(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY, config.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}

	return file.Close()
}

// Remove deletes the ledger. A missing file is not an error.
func (l *FileLedger) Remove(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove ledger: %w", err)
	}

	return nil
}
