package blackbox

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
)

var (
	buildOnce sync.Once
	binPath   string
	buildErr  error
)

func resolveBinaryPath(t *testing.T) string {
	t.Helper()
	if override := os.Getenv("ONCHANGE_E2E_BIN"); override != "" {
		return override
	}
	buildOnce.Do(func() {
		tmpDir, err := os.MkdirTemp("", "onchange-blackbox-bin-*")
		if err != nil {
			buildErr = err
			return
		}
		name := "onchange"
		if isWindows() {
			name += ".exe"
		}
		binPath = filepath.Join(tmpDir, name)
		cmd := exec.Command("go", "build", "-o", binPath, "./cmd/onchange")
		cmd.Dir = repoRoot()
		out, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("go build failed: %w\n%s", err, string(out))
			return
		}
	})
	if buildErr != nil {
		t.Fatalf("resolve binary: %v", buildErr)
	}
	return binPath
}

func repoRoot() string {
	wd, _ := os.Getwd()
	// e2e/blackbox -> repo root
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func isWindows() bool {
	return os.PathSeparator == '\\'
}
