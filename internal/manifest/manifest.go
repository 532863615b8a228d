package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/ini.v1"

	"github.com/oshokin/section-installer/internal/domain/section"
)

// Manifest is a validated manifest with its sections in declaration order.
type Manifest struct {
	// names keeps the first-appearance order of the headers.
	names []string
	// file holds the settings of every section.
	file *ini.File
}

// Validate checks the manifest for duplicated headers and malformed assignments.
// Problems are reported in line order; the first one found is returned.
func Validate(src []byte) error {
	lines := scanLines(src)

	occurrences := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.kind == lineHeader {
			occurrences[l.name]++
		}
	}

	for _, l := range lines {
		switch l.kind {
		case lineHeader:
			if count := occurrences[l.name]; count > 1 {
				return &DuplicateSectionError{Name: l.name, Count: count}
			}
		case lineInvalid:
			return &SyntaxError{Line: l.number, Text: l.text}
		case lineIgnored, lineAssignment:
		}
	}

	return nil
}

// ListSectionNames returns the section names in the order they first appear.
func ListSectionNames(src []byte) []string {
	var (
		lines = scanLines(src)
		seen  = make(map[string]struct{}, len(lines))
		names []string
	)

	for _, l := range lines {
		if l.kind != lineHeader {
			continue
		}

		if _, ok := seen[l.name]; ok {
			continue
		}

		seen[l.name] = struct{}{}
		names = append(names, l.name)
	}

	return names
}

// Open validates the source and builds a Manifest for name-keyed lookups.
func Open(src []byte) (*Manifest, error) {
	if err := Validate(src); err != nil {
		return nil, err
	}

	file, err := buildSettings(scanLines(src))
	if err != nil {
		return nil, fmt.Errorf("load manifest settings: %w", err)
	}

	return &Manifest{
		names: ListSectionNames(src),
		file:  file,
	}, nil
}

// Load reads and opens a manifest file.
func Load(path string) (*Manifest, error) {
	src, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Open(src)
}

// ReadFile reads the raw manifest source.
func ReadFile(path string) ([]byte, error) {
	src, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return src, nil
}

// Parse validates the source and returns every section in declaration order.
func Parse(src []byte) ([]*section.Section, error) {
	m, err := Open(src)
	if err != nil {
		return nil, err
	}

	return m.Sections()
}

// SectionNames returns the section names in declaration order.
func (m *Manifest) SectionNames() []string {
	return append([]string(nil), m.names...)
}

// Section returns the named section with its own settings.
func (m *Manifest) Section(name string) (*section.Section, error) {
	iniSection, err := m.file.GetSection(name)
	if err != nil || !slices.Contains(m.names, name) {
		return nil, fmt.Errorf("%q: %w", name, ErrSectionNotFound)
	}

	// Keys, not KeysHash or Key: only the section's own keys, no parent inheritance.
	keys := iniSection.Keys()

	settings := make(map[string]string, len(keys))
	for _, key := range keys {
		settings[key.Name()] = key.Value()
	}

	return section.New(name, settings), nil
}

// Sections returns every section in declaration order.
func (m *Manifest) Sections() ([]*section.Section, error) {
	result := make([]*section.Section, 0, len(m.names))

	for _, name := range m.names {
		s, err := m.Section(name)
		if err != nil {
			return nil, err
		}

		result = append(result, s)
	}

	return result, nil
}

// buildSettings fills an ini.v1 document from the classified lines. Keys and
// values are stored as scanned, so ini.v1 never applies its own grammar to
// them. Assignments before the first header are dropped and a repeated key
// keeps its last value.
func buildSettings(lines []line) (*ini.File, error) {
	var (
		file    = ini.Empty()
		current *ini.Section
	)

	for _, l := range lines {
		switch l.kind {
		case lineHeader:
			s, err := file.NewSection(l.name)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", l.number, err)
			}

			current = s
		case lineAssignment:
			if current == nil {
				continue
			}

			if _, err := current.NewKey(l.key, l.value); err != nil {
				return nil, fmt.Errorf("line %d: %w", l.number, err)
			}
		case lineIgnored, lineInvalid:
		}
	}

	return file, nil
}
