// Package store holds the record table and mirrors it to disk.
//
// The table is an in-memory map from identifier to record. After every
// successful mutation the whole table is written out by a Persister:
//   - JSONFile: one JSON object, sorted keys, 4-space indent, replaced
//     atomically (temp file + rename)
//   - SQLite: table records(id, body, digest), replaced inside one transaction
//   - no path: nothing is written
//
// # Single Writer
//
// Create, Update and Delete are submitted to a FIFO queue and applied by the
// goroutine running Store.Run, one at a time. The writer holds the table's
// write lock across the change and the save, so readers never observe a
// state that has not been persisted. If the save fails, the change is rolled
// back and a Persistence error is returned.
//
// Reads (All, Get, GetField, Exists) take the read lock and return copies.
//
// # Errors
//
// Every failure is an *Error with a Kind: NotFound, Unauthorized or
// Persistence. Authorization is checked before the mutation is queued, so an
// unauthorized call never reaches the existence check.
package store
