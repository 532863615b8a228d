package manifest

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateSection is matched by DuplicateSectionError.
	ErrDuplicateSection = errors.New("duplicate section")
	// ErrInvalidSyntax is matched by SyntaxError.
	ErrInvalidSyntax = errors.New("invalid syntax")
	// ErrSectionNotFound is returned when a looked up section is not declared.
	ErrSectionNotFound = errors.New("section not found")
)

// DuplicateSectionError reports a header that occurs more than once.
type DuplicateSectionError struct {
	// Name is the duplicated section name.
	Name string
	// Count is the total number of occurrences in the manifest.
	Count int
}

func (e *DuplicateSectionError) Error() string {
	return fmt.Sprintf("%s: [%s] occurs %d times", ErrDuplicateSection, e.Name, e.Count)
}

func (e *DuplicateSectionError) Unwrap() error { return ErrDuplicateSection }

// SyntaxError reports an assignment line without a valid key.
type SyntaxError struct {
	// Line is the 1-based line number.
	Line int
	// Text is the offending line as written.
	Text string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at line %d: %q", ErrInvalidSyntax, e.Line, e.Text)
}

func (e *SyntaxError) Unwrap() error { return ErrInvalidSyntax }
