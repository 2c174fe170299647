package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"trueedits/internal/logging"
	"trueedits/internal/services"
)

const (
	// DefaultGrace is how long a cancelled process gets between SIGTERM and
	// SIGKILL.
	DefaultGrace = 2 * time.Second

	defaultOutputLimit = 64 * 1024
)

// Command is one external invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
	// OnLine, when set, receives stdout line by line. Stderr is always
	// captured for diagnostics.
	OnLine func(line string)
}

// Result reports a finished process.
type Result struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// Executor runs external commands. *Runner is the production
// implementation; tests substitute fakes.
type Executor interface {
	Exec(ctx context.Context, cmd Command) (Result, error)
}

// ExitError is returned when a process exits non-zero. It matches
// services.ErrExternalTool under errors.Is.
type ExitError struct {
	Command  string
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", filepath.Base(e.Command), e.ExitCode)
	if tail := lastLines(e.Output, 3); tail != "" {
		msg += ": " + tail
	}
	return msg
}

func (e *ExitError) Unwrap() []error {
	return []error{services.ErrExternalTool, e.Err}
}

// Runner starts commands in their own process group, tracks them in a
// Registry and stops them when the context is cancelled.
type Runner struct {
	registry    *Registry
	logger      *slog.Logger
	grace       time.Duration
	outputLimit int
}

// Option configures a Runner.
type Option func(*Runner)

// WithGrace sets the SIGTERM to SIGKILL interval.
func WithGrace(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.grace = d
		}
	}
}

// WithOutputLimit caps how much trailing output is retained per command.
func WithOutputLimit(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.outputLimit = n
		}
	}
}

// NewRunner constructs a Runner. A nil registry gets a private one.
func NewRunner(registry *Registry, logger *slog.Logger, opts ...Option) *Runner {
	if registry == nil {
		registry = NewRegistry(logger)
	}
	r := &Runner{
		registry:    registry,
		logger:      logging.NewComponentLogger(logger, "process"),
		grace:       DefaultGrace,
		outputLimit: defaultOutputLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry exposes the registry the runner records processes in.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Run is shorthand for Exec with only a name and arguments.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return r.Exec(ctx, Command{Name: name, Args: args})
}

// Exec starts cmd and blocks until it exits or ctx is done. On
// cancellation the process group receives SIGTERM, then SIGKILL after the
// grace period, and the returned error matches services.ErrCancelled (or
// services.ErrTimeout for deadlines).
func (r *Runner) Exec(ctx context.Context, c Command) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, ctxError(c.Name, err)
	}

	cmd := exec.Command(c.Name, c.Args...) //nolint:gosec
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = r.grace

	tail := newTailBuffer(r.outputLimit)
	cmd.Stderr = tail
	var stdout io.ReadCloser
	if c.OnLine != nil {
		pipe, err := cmd.StdoutPipe()
		if err != nil {
			return Result{}, services.Wrap(services.ErrExternalTool, "", c.Name, "stdout pipe", err)
		}
		stdout = pipe
	} else {
		cmd.Stdout = tail
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Result{}, services.Wrap(services.ErrConfiguration, "", c.Name, "binary not found", err)
		}
		return Result{}, services.Wrap(services.ErrExternalTool, "", c.Name, "start failed", err)
	}
	done := r.registry.add(cmd.Process, c.Name)
	r.logger.Debug("process started",
		logging.String(logging.FieldEventType, "process_started"),
		logging.Int("pid", cmd.Process.Pid),
		logging.String("command", c.Name),
		logging.String("args", strings.Join(c.Args, " ")),
	)

	waitErr := make(chan error, 1)
	go func() {
		if stdout != nil {
			scanner := bufio.NewScanner(stdout)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				c.OnLine(scanner.Text())
			}
			_, _ = io.Copy(io.Discard, stdout)
		}
		err := cmd.Wait()
		r.registry.remove(cmd.Process.Pid)
		waitErr <- err
	}()

	select {
	case err := <-waitErr:
		res := Result{ExitCode: exitCode(cmd, err), Output: tail.String(), Duration: time.Since(start)}
		if err != nil {
			return res, &ExitError{Command: c.Name, Args: c.Args, ExitCode: res.ExitCode, Output: res.Output, Err: err}
		}
		return res, nil
	case <-ctx.Done():
		r.stop(cmd.Process, c.Name, done)
		<-waitErr
		return Result{ExitCode: -1, Output: tail.String(), Duration: time.Since(start)}, ctxError(c.Name, ctx.Err())
	}
}

func (r *Runner) stop(proc *os.Process, name string, done <-chan struct{}) {
	r.logger.Info("stopping process",
		logging.String(logging.FieldEventType, "process_stop"),
		logging.Int("pid", proc.Pid),
		logging.String("command", name),
	)
	signalGroup(proc, unix.SIGTERM)
	timer := time.NewTimer(r.grace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		signalGroup(proc, unix.SIGKILL)
	}
}

func ctxError(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "", name, "deadline exceeded", err)
	}
	return services.Cancelled(name, err)
}

func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

func lastLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, " | "))
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
