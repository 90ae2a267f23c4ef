//go:build !unix

package runner

import "os/exec"

func configureProcessGroup(_ *exec.Cmd) {}

func terminate(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
