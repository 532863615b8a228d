// Package common holds helpers shared by several services.
//
// It wires the configured log sinks into the global logger, detects the
// current system actor (hostname/username) for the install trail, and scans the
// process table so only one engine runs at a time.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
