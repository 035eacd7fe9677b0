//go:build !linux && !windows

package supervisor

import (
	"os"
	"os/exec"
	"syscall"
)

// unsupportedGroup is used where the kernel offers no kill-on-parent-death
// primitive (macOS, BSDs). The child still gets its own process group so an
// explicit Kill reaches its descendants; an ungraceful supervisor crash may
// leak it.
type unsupportedGroup struct{}

func newPlatformGroup() Group {
	return &unsupportedGroup{}
}

func (*unsupportedGroup) Supported() bool { return false }

func (*unsupportedGroup) Prepare(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func (*unsupportedGroup) Assign(*os.Process) error { return nil }

func (*unsupportedGroup) Kill(p *os.Process) error {
	return killProcessGroup(p)
}

func (*unsupportedGroup) Close() error { return nil }
