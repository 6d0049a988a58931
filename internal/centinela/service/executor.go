package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"syscall"
	"time"

	"github.com/centinela-pi/centinela/internal/centinela/store"
	"github.com/centinela-pi/centinela/internal/config"
)

// ExecutionResult is the outcome of one command execution.  When TimedOut
// is true the process was killed and ExitCode is meaningless.
type ExecutionResult struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	TimedOut  bool
	Truncated bool
}

// ExecRequest describes one command invocation.
type ExecRequest struct {
	Command string
	Actor   *int64        // nil for scheduler-originated executions
	Timeout time.Duration // 0 means the configured default
}

// Executor runs whitelisted commands as bounded subprocesses.  Every
// invocation — success, failure, or rejection — is recorded in the event
// log.  The executor holds no lock while the subprocess runs.
type Executor struct {
	guard  *Guard
	cfg    *config.Store
	events store.SecurityEventStore
	logger *log.Logger
}

func NewExecutor(guard *Guard, cfg *config.Store, es store.SecurityEventStore, logger *log.Logger) *Executor {
	return &Executor{guard: guard, cfg: cfg, events: es, logger: logger}
}

// Execute runs req.Command through /bin/sh with a hard wall-clock timeout.
// A command that is not whitelisted is rejected without spawning anything
// and logged as unauthorized_access.  Subprocess failures never propagate
// as faults: every outcome maps to an ExecutionResult or one of the
// sentinel errors.
func (e *Executor) Execute(ctx context.Context, req ExecRequest) (ExecutionResult, error) {
	snap := e.cfg.Snapshot()

	// Checked at execution time, not creation time: a whitelist edit
	// retroactively denies previously-scheduled commands.
	if !e.guard.Allowed(req.Command) {
		e.logger.Printf("blocked command from %s: %q", actorLabel(req.Actor), req.Command)
		recordEvent(ctx, e.events, e.logger, store.SecurityEventRecord{
			Type:        store.EventUnauthorizedAccess,
			Description: fmt.Sprintf("blocked command: %s", req.Command),
			ActorID:     req.Actor,
		})
		return ExecutionResult{}, ErrCommandNotWhitelisted
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = snap.CommandTimeout()
	}

	res, runErr := e.run(ctx, req.Command, timeout, snap.MaxOutputBytes)

	switch {
	case runErr != nil:
		recordEvent(ctx, e.events, e.logger, store.SecurityEventRecord{
			Type:        store.EventCommandExecuted,
			Description: fmt.Sprintf("%s: failed to start: %v", req.Command, runErr),
			ActorID:     req.Actor,
		})
		return ExecutionResult{}, fmt.Errorf("%w: %v", ErrCommandSpawnFailed, runErr)

	case res.TimedOut:
		e.logger.Printf("command %q timed out after %s", req.Command, timeout)
		recordEvent(ctx, e.events, e.logger, store.SecurityEventRecord{
			Type:        store.EventCommandExecuted,
			Description: fmt.Sprintf("%s: timed out after %s", req.Command, timeout),
			ActorID:     req.Actor,
		})

	default:
		recordEvent(ctx, e.events, e.logger, store.SecurityEventRecord{
			Type:        store.EventCommandExecuted,
			Description: fmt.Sprintf("%s: exit=%d", req.Command, res.ExitCode),
			ActorID:     req.Actor,
		})
	}

	return res, nil
}

// run spawns the subprocess and triages its outcome.  The returned error is
// non-nil only for spawn failures.
func (e *Executor) run(ctx context.Context, command string, timeout time.Duration, maxOutput int) (ExecutionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)

	// Own process group, so a timeout kills the whole subprocess tree and
	// not just the shell.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	stdout := &boundedBuffer{max: maxOutput}
	stderr := &boundedBuffer{max: maxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()

	res := ExecutionResult{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.truncated || stderr.truncated,
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			res.TimedOut = true
			return res, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return ExecutionResult{}, err
	}
	return res, nil
}

// boundedBuffer captures output up to max bytes and drops the rest, marking
// the result truncated.  Writes past the limit still report success so the
// subprocess never blocks on a full pipe.
type boundedBuffer struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	room := b.max - b.buf.Len()
	if room <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *boundedBuffer) String() string { return b.buf.String() }

func actorLabel(actor *int64) string {
	if actor == nil {
		return "scheduler"
	}
	return fmt.Sprintf("operator %d", *actor)
}
