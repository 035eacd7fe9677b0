//go:build windows

package supervisor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// jobGroup assigns the child to a Job Object configured with
// JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE. The supervisor holds the only handle,
// so the kernel terminates every member when the supervisor exits for any
// reason.
type jobGroup struct {
	mu  sync.Mutex
	job windows.Handle
}

func newPlatformGroup() Group {
	return &jobGroup{}
}

func (*jobGroup) Supported() bool { return true }

func (*jobGroup) Prepare(*exec.Cmd) {}

func (g *jobGroup) Assign(p *os.Process) error {
	if p == nil {
		return errors.New(errProcessNotStarted)
	}

	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return fmt.Errorf("create job object: %w", err)
	}

	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{
		BasicLimitInformation: windows.JOBOBJECT_BASIC_LIMIT_INFORMATION{
			LimitFlags: windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE,
		},
	}
	if _, err := windows.SetInformationJobObject(
		job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	); err != nil {
		_ = windows.CloseHandle(job)
		return fmt.Errorf("configure job object: %w", err)
	}

	proc, err := windows.OpenProcess(windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE, false, uint32(p.Pid))
	if err != nil {
		_ = windows.CloseHandle(job)
		return fmt.Errorf("open process %d: %w", p.Pid, err)
	}
	defer windows.CloseHandle(proc)

	if err := windows.AssignProcessToJobObject(job, proc); err != nil {
		_ = windows.CloseHandle(job)
		return fmt.Errorf("assign process %d to job object: %w", p.Pid, err)
	}

	g.mu.Lock()
	g.job = job
	g.mu.Unlock()
	return nil
}

func (g *jobGroup) Kill(p *os.Process) error {
	g.mu.Lock()
	job := g.job
	g.mu.Unlock()

	if job != 0 {
		if err := windows.TerminateJobObject(job, UnknownExitCode); err != nil {
			return fmt.Errorf("terminate job object: %w", err)
		}
		return nil
	}
	if p == nil {
		return errors.New(errProcessNotStarted)
	}
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill process %d: %w", p.Pid, err)
	}
	return nil
}

func (g *jobGroup) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.job == 0 {
		return nil
	}
	err := windows.CloseHandle(g.job)
	g.job = 0
	return err
}
