// Package ledger implements the checkpoint ledger.
//
// The FileLedger records, one name per line, every section whose execution has
// started. It survives reboots and is the only input to resume decisions.
package ledger
