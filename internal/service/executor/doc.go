// Package executor runs one manifest section at a time.
//
// A section is checkpointed in the ledger before any work starts, then staged
// into its own workspace, verified and finally handed to its install script.
// Sections already present in the ledger are skipped; every failure is fatal.
package executor
