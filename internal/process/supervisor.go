// Package process owns the lifecycle of one spawned child process: launch in
// its own process group, resource limits, capped output capture, timeout
// detection, and a two-stage termination escalation that takes descendant
// processes down with it.
package process

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/haasonsaas/ocode/internal/logger"
)

// Limits are best-effort resource ceilings applied to the spawned process.
// Zero values disable the corresponding limit. Platforms without support
// skip them silently.
type Limits struct {
	CPUSeconds  int
	MemoryBytes int64
}

// Options configure one supervised run.
type Options struct {
	Command    string
	WorkingDir string
	Env        []string // nil means inherit the parent environment
	Stdin      string

	// Timeout bounds the process's natural runtime. NewSupervisor
	// substitutes DefaultTimeout for zero; a negative value disables the
	// timeout entirely.
	Timeout time.Duration
	// KillTimeout is the grace window between the graceful termination
	// signal and the forced kill of the whole group.
	KillTimeout time.Duration
	// MaxOutputBytes caps each captured stream. Zero means DefaultMaxOutputBytes.
	MaxOutputBytes int

	Limits Limits
}

// Defaults applied by Run for unset options.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultKillTimeout    = 5 * time.Second
	DefaultMaxOutputBytes = 1 << 20
)

// Result is the outcome of one supervised run.
type Result struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	TimedOut  bool
	Canceled  bool
	Truncated bool
	Duration  time.Duration
	PID       int

	// Err is set when the process could not be started or the run was
	// canceled; process failures are reported through ExitCode instead.
	Err error
}

// Supervisor runs exactly one child process. Each invocation gets a fresh
// instance; nothing here is shared across runs.
type Supervisor struct {
	opts Options
	log  *logger.Logger
}

// NewSupervisor creates a supervisor for a single run.
func NewSupervisor(opts Options) *Supervisor {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.KillTimeout <= 0 {
		opts.KillTimeout = DefaultKillTimeout
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = DefaultMaxOutputBytes
	}
	return &Supervisor{
		opts: opts,
		log:  logger.Global().WithPrefix("process"),
	}
}

// Run executes the command and blocks until the process has been reaped.
// Every exit path, including timeout and cancellation, waits on the child
// so no zombie is ever left behind.
func (s *Supervisor) Run(ctx context.Context) Result {
	start := time.Now()

	cmd := shellCommand(s.opts.Command)
	cmd.Dir = s.opts.WorkingDir
	if s.opts.Env != nil {
		cmd.Env = s.opts.Env
	} else {
		cmd.Env = os.Environ()
	}
	if s.opts.Stdin != "" {
		cmd.Stdin = strings.NewReader(s.opts.Stdin)
	}
	configureProcessGroup(cmd)

	stdout := newCappedBuffer(s.opts.MaxOutputBytes)
	stderr := newCappedBuffer(s.opts.MaxOutputBytes)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1, Err: err, Duration: time.Since(start)}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{ExitCode: -1, Err: err, Duration: time.Since(start)}
	}

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1, Err: err, Duration: time.Since(start)}
	}

	pid := cmd.Process.Pid
	pgid := processGroupID(cmd)
	term := newTerminator(cmd, pgid)
	s.log.Debug("started pid=%d pgid=%d command=%q", pid, pgid, s.opts.Command)

	applyResourceLimits(pid, s.opts.Limits, s.log)

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		_, _ = io.Copy(stdout, stdoutPipe)
	}()
	go func() {
		defer readers.Done()
		_, _ = io.Copy(stderr, stderrPipe)
	}()

	// Readers must drain before Wait closes the pipes.
	done := make(chan error, 1)
	go func() {
		readers.Wait()
		done <- cmd.Wait()
	}()

	var timerC <-chan time.Time
	if s.opts.Timeout > 0 {
		timer := time.NewTimer(s.opts.Timeout)
		defer timer.Stop()
		timerC = timer.C
	}

	result := Result{PID: pid}

	select {
	case waitErr := <-done:
		result.ExitCode = exitCodeFromWait(waitErr)

	case <-timerC:
		s.log.Warn("pid=%d exceeded timeout %s, escalating", pid, s.opts.Timeout)
		result.TimedOut = true
		result.ExitCode = -1
		s.escalate(term, done)

	case <-ctx.Done():
		s.log.Warn("pid=%d canceled: %v, escalating", pid, ctx.Err())
		result.Canceled = true
		result.ExitCode = -1
		result.Err = ctx.Err()
		s.escalate(term, done)
	}

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.Truncated = stdout.Truncated() || stderr.Truncated()
	result.Duration = time.Since(start)
	return result
}

// escalate performs the two-stage teardown: graceful signal to the whole
// group, a bounded grace window, then a forced kill. It returns only after
// the child has been reaped, keeping total teardown within KillTimeout + ε.
func (s *Supervisor) escalate(term terminator, done <-chan error) {
	if err := term.Terminate(false); err != nil {
		s.log.Debug("graceful terminate failed: %v", err)
	}

	select {
	case <-done:
		return
	case <-time.After(s.opts.KillTimeout):
	}

	if err := term.Terminate(true); err != nil {
		s.log.Warn("forced kill failed: %v", err)
	}

	// Blocking reap. SIGKILL cannot be ignored, so this terminates.
	<-done
}

func exitCodeFromWait(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
