package supervisor

import (
	"github.com/runger/sidecar/internal/locate"
)

// Flags are the fixed worker flags wrapped around the pass-through arguments.
type Flags struct {
	ArtifactFlag string   // precedes the artifact path, e.g. -jar; omitted when empty
	ProfileFlag  string   // appended last, selects the standalone profile
	DebugFlag    string   // injected before ArtifactFlag in debug mode
	RuntimeArgs  []string // runtime options placed before ArtifactFlag
}

// BuildArgs returns the worker arguments (without the runtime itself):
//
//	runtimeArgs.. [debugFlag] artifactFlag artifact passthrough.. profileFlag
//
// The worker's parser expects its own flags after positional arguments, so
// the profile flag always goes last.
func BuildArgs(loc locate.Location, passthrough []string, flags Flags, debug bool) []string {
	args := make([]string, 0, len(flags.RuntimeArgs)+len(passthrough)+4)
	args = append(args, flags.RuntimeArgs...)
	if debug && flags.DebugFlag != "" {
		args = append(args, flags.DebugFlag)
	}
	if flags.ArtifactFlag != "" {
		args = append(args, flags.ArtifactFlag)
	}
	args = append(args, loc.Artifact)
	args = append(args, passthrough...)
	if flags.ProfileFlag != "" {
		args = append(args, flags.ProfileFlag)
	}
	return args
}

// Command returns the full argument vector including the runtime binary.
func Command(loc locate.Location, passthrough []string, flags Flags, debug bool) []string {
	return append([]string{loc.Runtime}, BuildArgs(loc, passthrough, flags, debug)...)
}
