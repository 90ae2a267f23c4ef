package blackbox

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
)

type cliResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// harness drives the built binary against a throwaway git repository.
type harness struct {
	t       *testing.T
	binPath string
	repoDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	requireGit(t)

	h := &harness{
		t:       t,
		binPath: resolveBinaryPath(t),
		repoDir: t.TempDir(),
	}
	h.git("init")
	h.git("config", "user.email", "test@example.com")
	h.git("config", "user.name", "Test")
	return h
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("scenarios drive the posix shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func (h *harness) git(args ...string) {
	h.t.Helper()
	cmd := exec.Command("git", append([]string{"-C", h.repoDir}, args...)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		h.t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func (h *harness) run(args ...string) cliResult {
	h.t.Helper()

	cmd := exec.Command(h.binPath, args...)
	cmd.Dir = h.repoDir
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			h.t.Fatalf("run %v failed: %v", args, err)
		}
	}
	return cliResult{
		ExitCode: code,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
}

func (h *harness) mustRun(args ...string) cliResult {
	h.t.Helper()
	res := h.run(args...)
	if res.ExitCode != 0 {
		h.t.Fatalf("expected success, got exit=%d\nargs=%v\nstdout=%s\nstderr=%s", res.ExitCode, args, res.Stdout, res.Stderr)
	}
	return res
}

func (h *harness) writeFile(rel, content string) {
	h.t.Helper()
	path := filepath.Join(h.repoDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		h.t.Fatalf("mkdir %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		h.t.Fatalf("write %s: %v", rel, err)
	}
}

func (h *harness) path(rel string) string {
	return filepath.Join(h.repoDir, filepath.FromSlash(rel))
}

func (h *harness) fileExists(rel string) bool {
	_, err := os.Stat(h.path(rel))
	return err == nil
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file %s: %v", path, err)
	}
	return string(data)
}
