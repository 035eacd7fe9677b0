package supervisor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/sidecar/internal/locate"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("process tests use /bin/sh")
	}
}

// shLocation writes body as a shell script and returns a location that
// runs it with /bin/sh.
func shLocation(t *testing.T, body string) locate.Location {
	t.Helper()
	script := filepath.Join(t.TempDir(), "worker.sh")
	require.NoError(t, os.WriteFile(script, []byte(body), 0o644))
	return locate.Location{Runtime: "/bin/sh", Artifact: script, Layout: locate.LayoutPrimary}
}

func testOptions(dir string) Options {
	return Options{
		Mode:       Standalone,
		Flags:      Flags{ProfileFlag: "--profile"},
		CaptureDir: dir,
		StdoutName: "backend.log",
		StderrName: "backend.err",
	}
}

func waitWithTimeout(t *testing.T, s *Supervisor) int {
	t.Helper()
	result := make(chan int, 1)
	go func() { result <- s.Wait() }()
	select {
	case code := <-result:
		return code
	case <-time.After(10 * time.Second):
		t.Fatal("Wait() did not return")
		return -1
	}
}

type fakeRecorder struct {
	mu     sync.Mutex
	starts []RunInfo
	exits  map[string]int
	killed map[string]bool
	err    error
}

func (r *fakeRecorder) RecordStart(_ context.Context, run RunInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, run)
	return r.err
}

func (r *fakeRecorder) RecordExit(_ context.Context, runID string, code int, killed bool, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exits == nil {
		r.exits = map[string]int{}
		r.killed = map[string]bool{}
	}
	r.exits[runID] = code
	r.killed[runID] = killed
	return r.err
}

func TestSpawn_CapturesArgsAndOutput(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	loc := shLocation(t, "echo \"$@\"\necho oops >&2\n")

	s := New(testOptions(dir))
	_, err := s.Spawn(context.Background(), loc, []string{"a", "b c"})
	require.NoError(t, err)
	assert.Equal(t, 0, waitWithTimeout(t, s))

	stdout, err := os.ReadFile(filepath.Join(dir, "backend.log"))
	require.NoError(t, err)
	assert.Equal(t, "a b c --profile\n", string(stdout))

	stderr, err := os.ReadFile(filepath.Join(dir, "backend.err"))
	require.NoError(t, err)
	assert.Equal(t, "oops\n", string(stderr))
}

func TestSpawn_TruncatesCaptureEachRun(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()

	first := New(testOptions(dir))
	_, err := first.Spawn(context.Background(), shLocation(t, "echo a much longer first line\necho first >&2\n"), nil)
	require.NoError(t, err)
	waitWithTimeout(t, first)

	second := New(testOptions(dir))
	_, err = second.Spawn(context.Background(), shLocation(t, "echo short\n"), nil)
	require.NoError(t, err)
	waitWithTimeout(t, second)

	stdout, err := os.ReadFile(filepath.Join(dir, "backend.log"))
	require.NoError(t, err)
	assert.Equal(t, "short\n", string(stdout))

	stderr, err := os.ReadFile(filepath.Join(dir, "backend.err"))
	require.NoError(t, err)
	assert.Empty(t, stderr)
}

func TestWait_PropagatesExitCode(t *testing.T) {
	skipOnWindows(t)
	for _, code := range []int{0, 3, 42, 255} {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			s := New(testOptions(t.TempDir()))
			child, err := s.Spawn(context.Background(), shLocation(t, "exit "+strconv.Itoa(code)+"\n"), nil)
			require.NoError(t, err)

			assert.Equal(t, code, waitWithTimeout(t, s))
			assert.Equal(t, code, child.ExitCode())
			assert.True(t, child.Exited())
			assert.False(t, child.Killed())
		})
	}
}

func TestWait_SignalledIsUnknown(t *testing.T) {
	skipOnWindows(t)
	s := New(testOptions(t.TempDir()))
	_, err := s.Spawn(context.Background(), shLocation(t, "kill -9 $$\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, UnknownExitCode, waitWithTimeout(t, s))
}

func TestWait_NothingSpawned(t *testing.T) {
	s := New(testOptions(t.TempDir()))
	assert.Equal(t, UnknownExitCode, s.Wait())
}

func TestCloseRequested_KillsExactlyOnce(t *testing.T) {
	skipOnWindows(t)
	var kills atomic.Int32
	orig := killChild
	killChild = func(g Group, p *os.Process) error {
		kills.Add(1)
		return orig(g, p)
	}
	t.Cleanup(func() { killChild = orig })

	rec := &fakeRecorder{}
	opts := testOptions(t.TempDir())
	opts.Recorder = rec
	s := New(opts)
	child, err := s.Spawn(context.Background(), shLocation(t, "sleep 30\n"), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var took atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.CloseRequested() {
				took.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), took.Load(), "exactly one caller should take the child")
	assert.Equal(t, int32(1), kills.Load(), "kill should be sent once")
	assert.Nil(t, s.Current())

	assert.Equal(t, UnknownExitCode, waitWithTimeout(t, s))
	assert.True(t, child.Killed())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.True(t, rec.killed[child.RunID()])
	assert.Equal(t, UnknownExitCode, rec.exits[child.RunID()])
}

func TestCloseRequested_BeforeSpawn(t *testing.T) {
	skipOnWindows(t)
	s := New(testOptions(t.TempDir()))
	assert.False(t, s.CloseRequested())

	_, err := s.Spawn(context.Background(), shLocation(t, "exit 0\n"), nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseRequested_AfterExitDoesNotKill(t *testing.T) {
	skipOnWindows(t)
	var kills atomic.Int32
	orig := killChild
	killChild = func(g Group, p *os.Process) error {
		kills.Add(1)
		return nil
	}
	t.Cleanup(func() { killChild = orig })

	opts := testOptions(t.TempDir())
	opts.Mode = Embedded
	s := New(opts)
	child, err := s.Spawn(context.Background(), shLocation(t, "exit 0\n"), nil)
	require.NoError(t, err)
	<-child.Done()

	assert.Same(t, child, s.Current(), "embedded mode keeps the handle after exit")
	assert.True(t, s.CloseRequested())
	assert.Equal(t, int32(0), kills.Load())
	assert.False(t, child.Killed())
}

func TestWait_StandaloneClearsSlot(t *testing.T) {
	skipOnWindows(t)
	s := New(testOptions(t.TempDir()))
	_, err := s.Spawn(context.Background(), shLocation(t, "exit 0\n"), nil)
	require.NoError(t, err)
	waitWithTimeout(t, s)
	assert.Nil(t, s.Current())
	assert.False(t, s.CloseRequested())
}

func TestSpawn_Failure(t *testing.T) {
	dir := t.TempDir()
	s := New(testOptions(dir))
	loc := locate.Location{
		Runtime:  filepath.Join(dir, "missing", "java"),
		Artifact: filepath.Join(dir, "backend.jar"),
	}

	_, err := s.Spawn(context.Background(), loc, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSpawn)

	var se *SpawnError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, loc.Runtime, se.Path)
	assert.Nil(t, s.Current())
	assert.False(t, s.CloseRequested())
}

func TestSpawn_Twice(t *testing.T) {
	skipOnWindows(t)
	s := New(testOptions(t.TempDir()))
	loc := shLocation(t, "exit 0\n")
	_, err := s.Spawn(context.Background(), loc, nil)
	require.NoError(t, err)

	_, err = s.Spawn(context.Background(), loc, nil)
	assert.ErrorIs(t, err, ErrAlreadySpawned)
	waitWithTimeout(t, s)
}

func TestSpawn_CancelledContext(t *testing.T) {
	skipOnWindows(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(testOptions(t.TempDir()))
	_, err := s.Spawn(ctx, shLocation(t, "exit 0\n"), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, s.Current())
}

func TestSpawn_EmbeddedHasNoCapture(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	opts := testOptions(dir)
	opts.Mode = Embedded
	s := New(opts)

	_, err := s.Spawn(context.Background(), shLocation(t, "echo hi\n"), nil)
	require.NoError(t, err)
	waitWithTimeout(t, s)

	assert.NoFileExists(t, filepath.Join(dir, "backend.log"))
	assert.NoFileExists(t, filepath.Join(dir, "backend.err"))
}

func TestSpawn_CaptureFailureIsNotFatal(t *testing.T) {
	skipOnWindows(t)
	opts := testOptions(filepath.Join(t.TempDir(), "does", "not", "exist"))
	s := New(opts)

	_, err := s.Spawn(context.Background(), shLocation(t, "exit 7\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, 7, waitWithTimeout(t, s))
}

func TestSpawn_ChildEnvironment(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	opts := testOptions(dir)
	opts.Env = []string{"EXTRA=1"}
	s := New(opts)

	child, err := s.Spawn(context.Background(), shLocation(t, "echo \"$SIDECAR_RUN_ID $SIDECAR_MODE $EXTRA\"\n"), nil)
	require.NoError(t, err)
	waitWithTimeout(t, s)

	stdout, err := os.ReadFile(filepath.Join(dir, "backend.log"))
	require.NoError(t, err)
	assert.Equal(t, child.RunID()+" standalone 1\n", string(stdout))
}

func TestSpawn_JournalsRedactedArgs(t *testing.T) {
	skipOnWindows(t)
	rec := &fakeRecorder{err: errors.New("journal down")}
	opts := testOptions(t.TempDir())
	opts.Recorder = rec
	opts.Debug = true
	s := New(opts)

	child, err := s.Spawn(context.Background(), shLocation(t, "exit 4\n"), []string{"--db.password=hunter2"})
	require.NoError(t, err, "journal failures must not fail the spawn")
	assert.Equal(t, 4, waitWithTimeout(t, s))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.starts, 1)
	run := rec.starts[0]
	assert.Equal(t, child.RunID(), run.RunID)
	assert.Equal(t, child.PID(), run.PID)
	assert.Equal(t, "standalone", run.Mode)
	assert.True(t, run.Debug)
	assert.Equal(t, locate.LayoutPrimary, run.Layout)
	assert.NotContains(t, strings.Join(run.Args, " "), "hunter2")
	assert.Contains(t, child.Args(), "--db.password=hunter2")
	assert.Equal(t, 4, rec.exits[child.RunID()])
}
