package cli

import (
	"fmt"

	"github.com/fcamblor/cc-plugins/internal/install"
	"github.com/spf13/cobra"
)

func newHooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "Manage the Stop hook registration in .claude/settings.json",
	}

	cmd.AddCommand(
		newHooksInstallCmd(),
		newHooksUninstallCmd(),
		newHooksStatusCmd(),
	)
	return cmd
}

func addHookFlags(cmd *cobra.Command, startDir, command *string) {
	cmd.Flags().StringVar(startDir, "root", "", "Directory to resolve the repository from (default: current directory)")
	cmd.Flags().StringVar(command, "command", "onchange", "Hook command line to register")
}

func newHooksInstallCmd() *cobra.Command {
	var (
		startDir string
		command  string
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Register the gate as a Stop hook for this repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := resolveRoot(startDir)
			if err != nil {
				return fatal(err)
			}

			plan, err := install.BuildPlan(root, command)
			if err != nil {
				return fmt.Errorf("plan hook install: %w", err)
			}
			if plan.AlreadyInstalled {
				fmt.Fprintf(cmd.OutOrStdout(), "Stop hook already registered in %s\n", plan.SettingsPath)
				return nil
			}
			if err := install.Apply(plan); err != nil {
				return fmt.Errorf("install hook: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Registered Stop hook %q in %s\n", plan.Command, plan.SettingsPath)
			return nil
		},
	}

	addHookFlags(cmd, &startDir, &command)
	return cmd
}

func newHooksUninstallCmd() *cobra.Command {
	var (
		startDir string
		command  string
	)

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the Stop hook registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := resolveRoot(startDir)
			if err != nil {
				return fatal(err)
			}

			removed, err := install.Remove(root, command)
			if err != nil {
				return fmt.Errorf("uninstall hook: %w", err)
			}
			if !removed {
				fmt.Fprintln(cmd.OutOrStdout(), "No Stop hook registration found")
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed Stop hook %q from %s\n", command, install.SettingsPath(root))
			return nil
		},
	}

	addHookFlags(cmd, &startDir, &command)
	return cmd
}

func newHooksStatusCmd() *cobra.Command {
	var (
		startDir string
		command  string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the Stop hook registration state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := resolveRoot(startDir)
			if err != nil {
				return fatal(err)
			}

			status, err := install.BuildStatus(root, command)
			if err != nil {
				return fmt.Errorf("read hook status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Settings file: %s\n", status.SettingsPath)
			switch {
			case !status.SettingsFound:
				fmt.Fprintln(out, "Stop hook: not registered (settings file missing)")
			case status.Installed:
				fmt.Fprintf(out, "Stop hook: registered (%s)\n", status.Command)
			default:
				fmt.Fprintln(out, "Stop hook: not registered")
			}
			return nil
		},
	}

	addHookFlags(cmd, &startDir, &command)
	return cmd
}
