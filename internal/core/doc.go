// Package core provides the main passlock vault operations.
//
// Core operations include:
//   - Unlock/Lock/Tick: drive the session lock that gates every entry read or write
//   - Add/List/Search/Get/Update/Remove/Clear: manage encrypted entries
//   - ChangePassword: re-encrypt every entry under a new master password atomically
//   - Export/Import/Diff: move entries in and out as plaintext JSON
//
// Import conflict resolution supports multiple strategies:
//   - Keep the vault version
//   - Use the imported version
//   - Keep both (the import is added under a new id)
//   - Abort without changes
package core
