// Package version exposes build metadata for the installer.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Full renders them for the version command and UserAgent tags
// package download requests.
package version
