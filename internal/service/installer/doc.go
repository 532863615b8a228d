// Package installer registers the engine as a background service and manages it.
//
// Install bootstraps the data folders, downloads and validates the manifest,
// copies the running executable next to it, creates the ledger, saves the
// settings and registers a service whose only job is "run --config <path>".
// Start, Stop, Status and Deinstall operate on that registration, and Serve is
// the service side of the contract.
package installer
