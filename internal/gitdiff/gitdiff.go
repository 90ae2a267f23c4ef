// Package gitdiff lists working-tree paths that differ from the last
// commit by shelling out to the git binary.
package gitdiff

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotRepository is returned when the start directory is not inside a git
// working copy.
var ErrNotRepository = errors.New("not inside a git repository")

// FindRoot walks upward from dir until it finds a directory containing a
// .git entry. A .git regular file (worktrees, submodules) counts too.
func FindRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve start directory: %w", err)
	}

	current := abs
	for {
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", ErrNotRepository
		}
		current = parent
	}
}

// Scanner asks git for the set of changed working-tree paths.
type Scanner struct{}

func NewScanner() *Scanner {
	return &Scanner{}
}

// ChangedPaths returns repository-relative forward-slash paths that differ
// from the last commit: staged and unstaged modifications, renames,
// deletions, and untracked files. Deleted paths are included; callers are
// expected to handle "file absent" at hash time.
func (s *Scanner) ChangedPaths(ctx context.Context, root string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", root, "status", "--porcelain", "-z", "--untracked-files=all")
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			if strings.Contains(stderr, "not a git repository") {
				return nil, ErrNotRepository
			}
			return nil, fmt.Errorf("git status failed: %s", stderr)
		}
		return nil, fmt.Errorf("run git status: %w", err)
	}

	return parsePorcelain(output), nil
}

// parsePorcelain decodes NUL-separated porcelain v1 records. Each record is
// "XY path"; rename and copy records carry the origin path in an extra NUL
// field, which is skipped so only the current path is reported.
func parsePorcelain(output []byte) []string {
	fields := strings.Split(string(output), "\x00")
	paths := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))

	for i := 0; i < len(fields); i++ {
		record := fields[i]
		if len(record) < 4 {
			continue
		}
		status := record[:2]
		path := record[3:]
		if status[0] == 'R' || status[0] == 'C' {
			i++
		}
		if path == "" {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		paths = append(paths, path)
	}

	return paths
}
