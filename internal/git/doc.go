// Package git checks whether a plaintext export lands in a git work tree.
//
// Checks performed:
//   - Whether the export file is tracked by git (should not be)
//   - Whether the export file is in .gitignore (should be)
//
// These checks help users avoid accidentally committing their passwords.
package git
