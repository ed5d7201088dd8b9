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
	"time"
)

// ExitKilled is the exit code reported when the process had to be killed.
const ExitKilled = 137

// LogParser maps one stderr line to a level name (error, warning, info,
// debug) and the message to log.
type LogParser func(line string) (level, msg string)

// Option configures a Process.
type Option func(*Process)

// WithGracefulTimeout bounds the wait after SIGINT before killing.
func WithGracefulTimeout(d time.Duration) Option {
	return func(p *Process) { p.gracefulTimeout = d }
}

// WithKillTimeout bounds the wait after SIGKILL.
func WithKillTimeout(d time.Duration) Option {
	return func(p *Process) { p.killTimeout = d }
}

// WithLogParser sets the parser used for stderr lines.
func WithLogParser(parser LogParser) Option {
	return func(p *Process) { p.logParser = parser }
}

// Process is one run of a command.
type Process struct {
	id              string
	command         string
	logger          *slog.Logger
	logParser       LogParser
	gracefulTimeout time.Duration
	killTimeout     time.Duration
}

// New creates a process for command. The command is split on spaces with
// single and double quotes grouping and backslash escaping.
func New(id, command string, logger *slog.Logger, opts ...Option) *Process {
	p := &Process{
		id:              id,
		command:         command,
		logger:          logger.With("process", id),
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Command returns the command line.
func (p *Process) Command() string {
	return p.command
}

// Run starts the process and calls consume with its stdout. It returns when
// the process has exited and consume has returned. A consume error stops the
// process and is returned; io.EOF from consume counts as a clean end.
func (p *Process) Run(ctx context.Context, consume func(stdout io.Reader) error) (int, error) {
	args, err := parseCommand(p.command)
	if err != nil {
		return 1, err
	}
	if len(args) == 0 {
		return 1, errors.New("empty command")
	}

	cmd := exec.Command(args[0], args[1:]...)
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 1, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 1, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return 1, fmt.Errorf("start %s: %w", args[0], err)
	}
	p.logger.Info("Process started", "pid", cmd.Process.Pid, "command", p.command)

	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		p.streamOutput(stderr)
	}()

	var consumeErr error
	consumed := make(chan struct{})
	go func() {
		consumeErr = consume(stdout)
		close(consumed)
	}()

	// Wait must not run before both pipes are fully read.
	exited := make(chan error, 1)
	go func() {
		<-consumed
		<-stderrDone
		exited <- cmd.Wait()
	}()

	var (
		waitErr error
		killed  bool
		ok      = true
	)
	select {
	case <-consumed:
		if consumeErr != nil && !errors.Is(consumeErr, io.EOF) {
			p.logger.Warn("Output consumer failed, stopping process", "error", consumeErr)
			killed, ok, waitErr = p.stop(cmd, exited)
			break
		}
		select {
		case waitErr = <-exited:
		case <-ctx.Done():
			killed, ok, waitErr = p.stop(cmd, exited)
		}
	case <-ctx.Done():
		p.logger.Info("Context cancelled, stopping process")
		killed, ok, waitErr = p.stop(cmd, exited)
	}

	if !ok {
		return ExitKilled, errors.New("process did not exit after kill")
	}
	if errors.Is(consumeErr, io.EOF) {
		consumeErr = nil
	}
	if killed {
		return ExitKilled, consumeErr
	}
	code := exitCodeFromError(waitErr)
	p.logger.Info("Process exited", "exit_code", code)
	return code, consumeErr
}

// stop interrupts the process group and escalates to a kill after the
// graceful timeout. It reports whether a kill was needed, false for ok when
// the process outlived the kill timeout too, and the Wait result.
func (p *Process) stop(cmd *exec.Cmd, exited <-chan error) (killed, ok bool, waitErr error) {
	if err := interrupt(cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn("Failed to send SIGINT", "error", err)
	}

	select {
	case err := <-exited:
		return false, true, err
	case <-time.After(p.gracefulTimeout):
	}

	p.logger.Warn("Graceful shutdown timeout, forcing kill", "timeout", p.gracefulTimeout)
	if err := kill(cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Error("Failed to kill process", "error", err)
	}
	select {
	case err := <-exited:
		return true, true, err
	case <-time.After(p.killTimeout):
		p.logger.Error("Process did not exit after kill signal")
		return true, false, nil
	}
}

// exitCodeFromError extracts the exit code from a Wait error.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
		return ExitKilled
	}
	return 1
}

// streamOutput logs stderr lines at the level the parser picks.
func (p *Process) streamOutput(reader io.Reader) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()

		level, msg := "info", line
		if p.logParser != nil {
			level, msg = p.logParser(line)
		}

		switch level {
		case "fatal", "error":
			p.logger.Error(msg)
		case "warning":
			p.logger.Warn(msg)
		case "debug", "trace":
			p.logger.Debug(msg)
		default:
			p.logger.Info(msg)
		}
	}
	if err := scanner.Err(); err != nil {
		p.logger.Warn("Error reading output", "error", err)
	}
}
