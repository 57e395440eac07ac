package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ExportStatus describes how git sees a plaintext export file
type ExportStatus struct {
	Path    string
	IsRepo  bool
	Tracked bool // Export tracked by git (bad)
	Ignored bool // Export matched by .gitignore (good)
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	err := cmd.Run()
	return err == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()

	if err != nil {
		return false
	}

	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	err := cmd.Run()

	// git check-ignore returns exit code 0 if file is ignored
	return err == nil
}

// CheckExport reports whether an export written to path could end up in
// a commit. Without git installed the path is reported as outside a repo.
func CheckExport(path string) (*ExportStatus, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	status := &ExportStatus{Path: abs}

	dir, name := filepath.Dir(abs), filepath.Base(abs)
	if !IsGitRepo(dir) {
		return status, nil
	}
	status.IsRepo = true
	status.Tracked = IsTracked(dir, name)
	status.Ignored = IsIgnored(dir, name)

	return status, nil
}

// Warnings returns the problems to show the user, if any
func (s *ExportStatus) Warnings() []string {
	if !s.IsRepo {
		return nil
	}

	name := filepath.Base(s.Path)
	var out []string
	if s.Tracked {
		out = append(out, fmt.Sprintf("%s is tracked by git (run: git rm --cached %s)", name, name))
	}
	if !s.Ignored {
		out = append(out, fmt.Sprintf("%s is inside a git work tree and not in .gitignore", name))
	}
	return out
}
