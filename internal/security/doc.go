// Package security confines the plaintext export and import files to a
// single directory.
//
// Exports hold every secret in the clear, so they are created with mode
// 0600 and never replace an existing file unless asked to.
package security
