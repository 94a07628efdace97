// Package invoker executes exactly one attempt against one external agent
// process: it serializes the input to the child's stdin, exposes per-call
// configuration through environment variables, captures bounded output, and
// enforces a wall-clock timeout by killing the process group.
//
// Retry and fallback policy live elsewhere; an Invoker performs one attempt
// and reports one Result.
package invoker

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

const (
	// DefaultMaxOutput bounds combined stdout/stderr capture (1 MiB).
	DefaultMaxOutput = 1 * 1024 * 1024

	// DefaultTimeout applies when a request carries no timeout.
	DefaultTimeout = 30 * time.Second
)

// Envelope is the structured output contract an agent process must honor on
// success: a single JSON object on stdout before a clean exit.
type Envelope struct {
	Data       json.RawMessage `json:"data"`
	ModelUsed  string          `json:"model_used,omitempty"`
	TokensUsed int             `json:"tokens_used,omitempty"`
}

// Request describes one attempt.
type Request struct {
	// SessionID keys the spawned process in the process table.
	SessionID string

	// Command is the agent executable to run.
	Command string

	// Args are extra arguments for the executable.
	Args []string

	// Input is written to the process's stdin, which is then closed.
	Input json.RawMessage

	// Env is the per-call configuration exposed to the process.
	Env EnvConfig

	// Timeout is the wall-clock budget for this attempt.
	Timeout time.Duration
}

// Result is the outcome of one attempt. Duration is always populated,
// regardless of how the attempt ended.
type Result struct {
	Success    bool
	Data       json.RawMessage
	ModelUsed  string
	TokensUsed int
	Err        error
	Duration   time.Duration
	Provider   string
	Attempt    int
	Fallback   bool
}

// Invoker spawns agent processes. It keeps a table of live processes keyed by
// session ID so shutdown can terminate in-flight work.
type Invoker struct {
	maxOutput int64
	table     *processTable
}

// New creates an Invoker. maxOutput <= 0 uses DefaultMaxOutput.
func New(maxOutput int64) *Invoker {
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}
	return &Invoker{
		maxOutput: maxOutput,
		table:     newProcessTable(),
	}
}

// PoolSize returns the number of live child processes currently tracked.
func (iv *Invoker) PoolSize() int {
	return iv.table.size()
}

// KillAll force-terminates every tracked process. Used on engine shutdown.
func (iv *Invoker) KillAll() []string {
	return iv.table.killAll()
}

// Invoke runs one attempt. The returned Result is never nil; on failure its
// Err field carries one of the typed errors from this package.
func (iv *Invoker) Invoke(req Request) *Result {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	start := time.Now()
	res := &Result{Provider: req.Env.Provider}
	finish := func() *Result {
		res.Duration = time.Since(start)
		return res
	}

	cmd := exec.Command(req.Command, req.Args...)
	cmd.Env = append(os.Environ(), req.Env.Environ()...)
	cmd.Stdin = bytes.NewReader(req.Input)
	// Own process group so a timeout kill reaches any children too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		res.Err = &SpawnError{Provider: req.Env.Provider, Err: err}
		return finish()
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		res.Err = &SpawnError{Provider: req.Env.Provider, Err: err}
		return finish()
	}

	if err := cmd.Start(); err != nil {
		res.Err = &SpawnError{Provider: req.Env.Provider, Err: err}
		return finish()
	}

	iv.table.track(req.SessionID, cmd.Process)
	defer iv.table.untrack(req.SessionID)

	// Killer goroutine: fires on timeout, stood down once the attempt is done.
	done := make(chan struct{})
	timedOut := make(chan struct{}, 1)
	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-timer.C:
			timedOut <- struct{}{}
			killGroup(cmd.Process.Pid)
		case <-done:
		}
	}()

	var stdout, stderr bytes.Buffer
	copyDone := make(chan error, 2)
	go func() {
		_, err := io.Copy(&stdout, io.LimitReader(stdoutPipe, iv.maxOutput))
		copyDone <- err
	}()
	go func() {
		_, err := io.Copy(&stderr, io.LimitReader(stderrPipe, iv.maxOutput))
		copyDone <- err
	}()
	for i := 0; i < 2; i++ {
		<-copyDone // copy errors are non-fatal; the wait result decides
	}

	waitErr := cmd.Wait()
	close(done)

	if waitErr != nil {
		select {
		case <-timedOut:
			res.Err = &TimeoutError{Provider: req.Env.Provider, Timeout: timeout}
			return finish()
		default:
		}
		res.Err = &NonZeroExitError{
			Provider: req.Env.Provider,
			ExitCode: exitCode(waitErr),
			Stderr:   strings.TrimSpace(stderr.String()),
		}
		return finish()
	}

	var env Envelope
	if err := json.Unmarshal(stdout.Bytes(), &env); err != nil {
		res.Err = &MalformedOutputError{Provider: req.Env.Provider, Err: err}
		return finish()
	}
	if len(env.Data) == 0 {
		res.Err = &MalformedOutputError{
			Provider: req.Env.Provider,
			Err:      errors.New("output envelope missing 'data' field"),
		}
		return finish()
	}

	res.Success = true
	res.Data = env.Data
	res.ModelUsed = env.ModelUsed
	res.TokensUsed = env.TokensUsed
	return finish()
}

// killGroup sends SIGKILL to the process group, falling back to the single
// process if the group lookup fails.
func killGroup(pid int) {
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		pgid = pid
	}
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
}

// exitCode extracts the exit code from a Wait error.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
