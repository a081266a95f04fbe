// Package ledger is the execution environment shared by the BlocksUI registries.
//
// Every mutating registry operation runs as a single transition through
// Ledger.Apply. A transition holds the ledger's write lock for its whole
// duration, moves the call's attached value into the target registry's custody
// account, and either commits completely or is rolled back completely:
// balance writes are journaled automatically and registry state changes are
// undone through Tx.OnRollback hooks.
//
// Read-only queries take the shared lock through Ledger.View. A query issued
// from inside a transition (for example a marketplace asking the content
// registry who owns a token) finds the transition in its context and does not
// lock again.
package ledger
