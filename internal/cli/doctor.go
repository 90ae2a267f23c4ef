package cli

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/fcamblor/cc-plugins/internal/config"
	"github.com/fcamblor/cc-plugins/internal/install"
	"github.com/fcamblor/cc-plugins/internal/snapshot"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	var startDir string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local diagnostics for the change gate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "onchange doctor")
			fmt.Fprintln(out)
			fmt.Fprintf(out, "OS: %s/%s\n", runtime.GOOS, runtime.GOARCH)

			gitPath, err := exec.LookPath("git")
			if err != nil {
				printError(out, "git lookup: NOT FOUND in PATH")
				printHint(out, "The gate reads the working-tree diff through `git status`.")
				return nil
			}
			printOK(out, "git lookup: OK (%s)", gitPath)

			root, err := resolveRoot(startDir)
			if err != nil {
				printWarn(out, "Repository: %v", err)
				printHint(out, "Run doctor from inside the repository the hook should guard.")
				return nil
			}
			printOK(out, "Repository: OK (%s)", root)

			if err := ensureWritable(snapshot.StateDir(root)); err != nil {
				printError(out, "State dir writable check: FAILED (%v)", err)
			} else {
				printOK(out, "State dir writable check: OK (%s)", snapshot.StateDir(root))
			}

			cfg, exists, err := config.Load(root)
			switch {
			case err != nil:
				printError(out, "Rule file: INVALID (%v)", err)
			case !exists:
				printWarn(out, "Rule file: not found (%s)", config.FileName)
				printHint(out, "Without a rule file, every run needs --on and --exec flags.")
			default:
				printOK(out, "Rule file: OK (on: %q, %d command(s))", cfg.On, len(cfg.Exec))
			}

			status, err := install.BuildStatus(root, "onchange")
			if err != nil {
				printError(out, "Hook registration: UNREADABLE (%v)", err)
			} else if status.Installed {
				printOK(out, "Hook registration: OK (Stop hook in %s)", status.SettingsPath)
			} else {
				printWarn(out, "Hook registration: not registered")
				printHint(out, "Run `onchange hooks install`.")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&startDir, "root", "", "Directory to resolve the repository from (default: current directory)")
	return cmd
}

func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	file, err := os.CreateTemp(dir, "doctor-write-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	path := file.Name()
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove temp file: %w", err)
	}
	return nil
}
