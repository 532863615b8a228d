package manifest

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
)

// lineKind classifies one manifest line.
type lineKind int

const (
	lineIgnored lineKind = iota
	lineHeader
	lineAssignment
	lineInvalid
)

// line is a classified manifest line.
type line struct {
	number int
	kind   lineKind
	text   string
	// name is set for headers.
	name string
	// key and value are set for valid assignments.
	key   string
	value string
}

var (
	headerPattern     = regexp.MustCompile(`^\[(.+)\]$`)
	assignmentPattern = regexp.MustCompile(`^([^\s=]+)=(.*)$`)
	utf8BOM           = []byte{0xEF, 0xBB, 0xBF}
)

// scanLines splits the source into classified lines.
func scanLines(src []byte) []line {
	src = bytes.TrimPrefix(src, utf8BOM)

	var (
		result  []line
		scanner = bufio.NewScanner(bytes.NewReader(src))
		number  int
	)

	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), len(src)+1)

	for scanner.Scan() {
		number++
		result = append(result, classify(number, scanner.Text()))
	}

	return result
}

func classify(number int, raw string) line {
	l := line{number: number, text: raw}
	trimmed := strings.TrimSpace(raw)

	switch {
	case trimmed == "", strings.HasPrefix(trimmed, "#"), strings.HasPrefix(trimmed, ";"):
		l.kind = lineIgnored
	case headerPattern.MatchString(trimmed):
		name := strings.TrimSpace(headerPattern.FindStringSubmatch(trimmed)[1])
		if name == "" {
			l.kind = lineIgnored
			break
		}

		l.kind = lineHeader
		l.name = name
	case strings.Contains(trimmed, "="):
		match := assignmentPattern.FindStringSubmatch(trimmed)
		if match == nil {
			l.kind = lineInvalid
			break
		}

		l.kind = lineAssignment
		l.key = match[1]
		l.value = match[2]
	default:
		l.kind = lineIgnored
	}

	return l
}
