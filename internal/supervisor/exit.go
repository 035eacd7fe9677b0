package supervisor

import (
	"errors"
	"fmt"
	"os"
)

// UnknownExitCode is reported when the worker's status cannot be determined,
// for example when it was killed by a signal.
const UnknownExitCode = 1

var (
	// ErrSpawn is returned when the OS refuses to create the worker process.
	ErrSpawn = errors.New("failed to start worker")

	// ErrAlreadySpawned is returned by a second call to Spawn.
	ErrAlreadySpawned = errors.New("worker already spawned")

	// ErrClosed is returned by Spawn after a close request.
	ErrClosed = errors.New("supervisor is closed")
)

// SpawnError describes a failed process creation.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start worker %s: %v", e.Path, e.Err)
}

// Is reports ErrSpawn so callers can classify with errors.Is.
func (e *SpawnError) Is(target error) bool { return target == ErrSpawn }

func (e *SpawnError) Unwrap() error { return e.Err }

// ExitCode maps a wait result to the status the supervisor propagates. Normal
// exits keep their code; signals and unknown states map to UnknownExitCode.
func ExitCode(state *os.ProcessState, err error) int {
	if state == nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			if code := exitErr.ExitCode(); code >= 0 {
				return code
			}
		}
		return UnknownExitCode
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	return UnknownExitCode
}
