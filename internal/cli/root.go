package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fcamblor/cc-plugins/internal/buildinfo"
	"github.com/fcamblor/cc-plugins/internal/config"
	"github.com/fcamblor/cc-plugins/internal/detect"
	"github.com/fcamblor/cc-plugins/internal/gitdiff"
	"github.com/fcamblor/cc-plugins/internal/pattern"
	"github.com/fcamblor/cc-plugins/internal/runner"
	"github.com/fcamblor/cc-plugins/internal/snapshot"
	"github.com/spf13/cobra"
)

// Exit codes: 0 means no relevant change or all commands passed, 1 means a
// triggered command failed or timed out, 2 means the gate itself could not
// run (bad flags, missing repository, unreadable state).
const (
	exitCommandFailure = 1
	exitFatal          = 2
)

func NewRootCommand() *cobra.Command {
	opts := &gateOptions{}

	rootCmd := &cobra.Command{
		Use:   "onchange",
		Short: "Run commands only when watched files changed since the last invocation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGate(cmd, opts)
		},
	}

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	addRuleFlags(rootCmd, opts)
	rootCmd.Flags().StringArrayVar(&opts.execs, "exec", nil, "Command to run on change (repeatable; overrides the rule file)")
	rootCmd.Flags().IntVar(&opts.timeoutSeconds, "exec-timeout", 0, "Per-command timeout in seconds (0 uses the configured or default timeout)")

	rootCmd.AddCommand(
		newCheckCmd(),
		newStatusCmd(),
		newResetCmd(),
		newHooksCmd(),
		newDoctorCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

type gateOptions struct {
	watch          string
	ignores        []string
	execs          []string
	timeoutSeconds int
	startDir       string
}

func addRuleFlags(cmd *cobra.Command, opts *gateOptions) {
	cmd.Flags().StringVar(&opts.watch, "on", "", "Glob the changed files must match (overrides the rule file)")
	cmd.Flags().StringArrayVar(&opts.ignores, "ignore", nil, "Glob to exclude from matching (repeatable; merged with the rule file)")
	cmd.Flags().StringVar(&opts.startDir, "root", "", "Directory to resolve the repository from (default: current directory)")
}

func fatal(err error) error {
	return &ExitError{Code: exitFatal, Err: err}
}

func resolveRoot(startDir string) (string, error) {
	dir := startDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		dir = wd
	}

	root, err := gitdiff.FindRoot(dir)
	if err != nil {
		if errors.Is(err, gitdiff.ErrNotRepository) {
			return "", fmt.Errorf("%s is not inside a git repository", dir)
		}
		return "", err
	}
	return root, nil
}

// resolveRule merges flags over the rule file. Flags win field by field,
// except ignore lists, which accumulate.
func resolveRule(root string, opts *gateOptions, needExec bool) (*pattern.Matcher, []runner.Spec, error) {
	cfg, _, err := config.Load(root)
	if err != nil {
		return nil, nil, err
	}

	watch := opts.watch
	if watch == "" {
		watch = cfg.On
	}
	if watch == "" {
		return nil, nil, errors.New("no watch pattern. Pass --on or set `on` in " + config.FileName)
	}

	ignore := append(append([]string{}, cfg.Ignore...), opts.ignores...)
	matcher, err := pattern.NewMatcher(watch, ignore)
	if err != nil {
		return nil, nil, err
	}

	execs := opts.execs
	if len(execs) == 0 {
		execs = cfg.Exec
	}
	if needExec && len(execs) == 0 {
		return nil, nil, errors.New("no commands to run. Pass --exec or set `exec` in " + config.FileName)
	}

	if opts.timeoutSeconds < 0 {
		return nil, nil, errors.New("--exec-timeout cannot be negative")
	}
	timeout := cfg.Timeout()
	if opts.timeoutSeconds > 0 {
		timeout = time.Duration(opts.timeoutSeconds) * time.Second
	}

	specs := make([]runner.Spec, 0, len(execs))
	for _, command := range execs {
		specs = append(specs, runner.Spec{Command: command, Timeout: timeout})
	}
	return matcher, specs, nil
}

func newDetector() *detect.Detector {
	return detect.New(gitdiff.NewScanner(), snapshot.NewFileStore())
}

func runGate(cmd *cobra.Command, opts *gateOptions) error {
	root, err := resolveRoot(opts.startDir)
	if err != nil {
		return fatal(err)
	}
	matcher, specs, err := resolveRule(root, opts, true)
	if err != nil {
		return fatal(err)
	}

	decision, err := newDetector().Evaluate(cmd.Context(), root, matcher)
	if err != nil {
		return fatal(err)
	}
	if !decision.Changed {
		return nil
	}

	agg := runner.RunAll(cmd.Context(), specs)
	if agg.Succeeded() {
		return nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), agg.FailureReport())
	return &ExitError{Code: exitCommandFailure}
}

func newCheckCmd() *cobra.Command {
	opts := &gateOptions{}
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether the gate would trigger, without running commands or updating state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := resolveRoot(opts.startDir)
			if err != nil {
				return fatal(err)
			}
			matcher, _, err := resolveRule(root, opts, false)
			if err != nil {
				return fatal(err)
			}

			decision, err := newDetector().Peek(cmd.Context(), root, matcher)
			if err != nil {
				return fatal(err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(decision)
			}

			switch {
			case decision.Bootstrap:
				fmt.Fprintln(out, "Changed: no (no baseline yet; the next run records one without triggering)")
			case decision.Changed:
				fmt.Fprintf(out, "Changed: yes (%d file(s))\n", len(decision.ChangedPaths))
				for _, path := range decision.ChangedPaths {
					fmt.Fprintf(out, "- %s\n", path)
				}
			default:
				fmt.Fprintln(out, "Changed: no")
			}
			return nil
		},
	}

	addRuleFlags(cmd, opts)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the decision as JSON")
	return cmd
}

func newStatusCmd() *cobra.Command {
	var startDir string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored baseline and rule file state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := resolveRoot(startDir)
			if err != nil {
				return fatal(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Repository: %s\n", root)

			snap, existed := snapshot.NewFileStore().Load(root)
			if existed {
				fmt.Fprintf(out, "Baseline: %s (%d tracked file(s))\n", snapshot.StatePath(root), len(snap))
			} else {
				fmt.Fprintf(out, "Baseline: none (next run records one without triggering)\n")
			}

			cfg, exists, err := config.Load(root)
			switch {
			case err != nil:
				fmt.Fprintf(out, "Rule file: %s (invalid: %v)\n", config.FileName, err)
			case exists:
				fmt.Fprintf(out, "Rule file: %s (on: %q, %d command(s))\n", config.FileName, cfg.On, len(cfg.Exec))
			default:
				fmt.Fprintf(out, "Rule file: none\n")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&startDir, "root", "", "Directory to resolve the repository from (default: current directory)")
	return cmd
}

func newResetCmd() *cobra.Command {
	var startDir string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard the stored baseline so the next run re-records it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := resolveRoot(startDir)
			if err != nil {
				return fatal(err)
			}

			path := snapshot.StatePath(root)
			if err := os.Remove(path); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					fmt.Fprintln(cmd.OutOrStdout(), "No baseline to remove")
					return nil
				}
				return fatal(fmt.Errorf("remove baseline: %w", err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&startDir, "root", "", "Directory to resolve the repository from (default: current directory)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Print onchange build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "onchange %s\n", buildinfo.String())
		},
	}
}
