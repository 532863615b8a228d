// Package manifest parses and validates section-based installation manifests.
//
// A manifest is a list of [name] headers, each followed by key=value lines.
// Validation runs over the raw lines before anything executes: duplicated
// headers and malformed assignments are fatal. The accepted keys and values
// are then stored verbatim in a gopkg.in/ini.v1 document for name-keyed lookups.
package manifest
