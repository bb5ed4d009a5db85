//go:build !linux

package execx

import "os/exec"

func setProcAttr(cmd *exec.Cmd) {
	// No process group handling outside Linux
	_ = cmd
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
