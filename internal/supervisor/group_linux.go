//go:build linux

package supervisor

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// deathSignalGroup puts the child in its own process group and asks the
// kernel to SIGKILL it when the supervisor dies.
//
// Pdeathsig only reaches the direct child. Processes the worker forks itself
// survive a supervisor crash unless the worker arranges for them to die with
// it; the explicit Kill still reaches them through the process group. This is
// weaker than the Windows job object, which terminates every member.
//
// Pdeathsig fires when the thread that forked the child exits, not the whole
// process. Go only retires threads whose goroutine exits while locked with
// runtime.LockOSThread, so Spawn must not be called from such a goroutine.
type deathSignalGroup struct{}

func newPlatformGroup() Group {
	return &deathSignalGroup{}
}

func (*deathSignalGroup) Supported() bool { return true }

func (*deathSignalGroup) Prepare(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: unix.SIGKILL,
	}
}

// Assign is a no-op: the coupling was set up by Prepare at fork time.
func (*deathSignalGroup) Assign(*os.Process) error { return nil }

func (*deathSignalGroup) Kill(p *os.Process) error {
	return killProcessGroup(p)
}

func (*deathSignalGroup) Close() error { return nil }
