//go:build !windows

package supervisor

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// killProcessGroup sends SIGKILL to the child's process group (negative PID
// targets the group), falling back to the process itself if the group is
// already gone.
func killProcessGroup(p *os.Process) error {
	if p == nil {
		return errors.New(errProcessNotStarted)
	}
	err := unix.Kill(-p.Pid, unix.SIGKILL)
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("kill process group %d: %w", p.Pid, err)
	}
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill process %d: %w", p.Pid, err)
	}
	return nil
}
