// Package storage persists a vault in either a BBolt or a SQLite database.
//
// The BBolt layout uses four buckets:
//   - config: schema version, timestamps and vault ID (unencrypted)
//   - master: salt, iterations and password verifier (unencrypted)
//   - session: lock status, last activity and auto-lock policy (unencrypted)
//   - entries: encrypted entry records keyed by sequence
//
// The SQLite layout keeps the same data in a meta table and an entries
// table, created by goose migrations embedded in the binary.
//
// Session state is unencrypted so status can be shown without a password.
// Entry contents, including their ids, only exist as ciphertext.
package storage
