package section

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

const (
	// KeyZipFile is the URL of the package archive.
	KeyZipFile = "zipFile"
	// KeyScriptFile is the install entry point, relative to the archive root.
	KeyScriptFile = "scriptFile"
	// KeyIniFile is an optional nested manifest handed to the entry point.
	KeyIniFile = "iniFile"
)

var (
	// ErrMissingSetting is returned when a required setting is absent or empty.
	ErrMissingSetting = errors.New("required setting is missing")
	// ErrInvalidName is returned for names that cannot be used as a folder name.
	ErrInvalidName = errors.New("invalid section name")
)

// Section is one named entry of the manifest with its key/value settings.
type Section struct {
	// Name identifies the section; unique within a manifest.
	Name string
	// Settings holds the key=value pairs declared under the section header.
	Settings map[string]string
}

// New returns a section owning a copy of the provided settings.
func New(name string, settings map[string]string) *Section {
	cloned := make(map[string]string, len(settings))
	maps.Copy(cloned, settings)

	return &Section{
		Name:     name,
		Settings: cloned,
	}
}

// Get returns the value of a setting or an empty string.
func (s *Section) Get(key string) string {
	if s == nil {
		return ""
	}

	return s.Settings[key]
}

// ZipFile returns the package archive URL.
func (s *Section) ZipFile() string {
	return s.Get(KeyZipFile)
}

// ScriptFile returns the install entry point path inside the archive.
func (s *Section) ScriptFile() string {
	return s.Get(KeyScriptFile)
}

// IniFile returns the nested manifest URL, possibly empty.
func (s *Section) IniFile() string {
	return s.Get(KeyIniFile)
}

// Validate checks that the settings required for execution are present.
func (s *Section) Validate() error {
	for _, key := range []string{KeyZipFile, KeyScriptFile} {
		if strings.TrimSpace(s.Get(key)) == "" {
			return fmt.Errorf("section %q: setting %q: %w", s.Name, key, ErrMissingSetting)
		}
	}

	return nil
}

// ValidateName checks that the name is usable as a workspace folder name.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%q contains a path separator: %w", name, ErrInvalidName)
	}

	return nil
}

// Clone returns a deep copy of the section.
func (s *Section) Clone() *Section {
	if s == nil {
		return nil
	}

	return New(s.Name, s.Settings)
}
