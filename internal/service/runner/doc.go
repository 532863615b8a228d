// Package runner drives a whole manifest: it validates the document and
// executes its sections one by one in declaration order, stopping at the
// first failure. Sections recorded in the ledger by an earlier run are skipped.
package runner
