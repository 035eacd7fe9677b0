package supervisor

import (
	"os"
	"os/exec"
)

// Group couples the lifetime of a child process to the supervisor so the child
// cannot outlive it, even when the supervisor is killed without running any
// cleanup. Platforms without such a primitive report Supported() == false and
// only offer the explicit Kill.
type Group interface {
	// Supported reports whether the OS enforces the coupling.
	Supported() bool

	// Prepare sets process attributes before the command is started.
	Prepare(cmd *exec.Cmd)

	// Assign places a started process into the group.
	Assign(p *os.Process) error

	// Kill forcefully terminates the process and anything it spawned
	// into the group.
	Kill(p *os.Process) error

	// Close releases the group. On Windows this also terminates any
	// member still running, so it is only called once the child exited.
	Close() error
}

// Test seam for the platform group.
var newGroup = newPlatformGroup

// NewGroup returns the termination group for the current platform.
func NewGroup() Group {
	return newGroup()
}
