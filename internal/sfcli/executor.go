// Package sfcli invokes the Salesforce CLI as a subprocess. Invocation is
// argument-vector only; caller-supplied values are never interpolated into
// a shell string.
package sfcli

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"sforg/internal/config"
	"sforg/internal/errors"
	"sforg/internal/logging"
)

// Runner abstracts subprocess execution so handlers and the retrieval
// coordinator can be tested against a fake.
type Runner interface {
	Run(ctx context.Context, args []string, opts RunOptions) ([]byte, error)
}

// RunOptions controls a single invocation
type RunOptions struct {
	// TimeoutMs bounds the call; values below 1000 are clamped up.
	// Zero means the default timeout.
	TimeoutMs int

	// Retries is the number of re-issues after a failed attempt.
	// Negative means the default retry count.
	Retries int

	// Dir is the working directory for the child process
	Dir string
}

// Executor is a hardened Salesforce CLI invoker with timeout and
// linear-backoff retry.
type Executor struct {
	binary string
	logger *logging.Logger
}

// NewExecutor creates an executor for the given binary name or path
func NewExecutor(binary string, logger *logging.Logger) *Executor {
	if binary == "" {
		binary = "sf"
	}
	return &Executor{
		binary: binary,
		logger: logger.Component("sfcli"),
	}
}

// Binary returns the configured executable name
func (e *Executor) Binary() string {
	return e.binary
}

// CheckInstalled verifies the binary resolves on PATH
func (e *Executor) CheckInstalled() error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return errors.New(errors.CLINotFound,
			fmt.Sprintf("%s executable not found on PATH", e.binary), err)
	}
	return nil
}

// Run executes the binary with the given argument vector and returns its
// captured standard output. Failed attempts are retried with a linear
// backoff of 1000ms × attempt number. On timeout the child process is
// killed and the attempt fails with a TIMEOUT error.
func (e *Executor) Run(ctx context.Context, args []string, opts RunOptions) ([]byte, error) {
	timeoutMs := opts.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = config.DefaultTimeoutMs
	}
	if timeoutMs < config.MinTimeoutMs {
		timeoutMs = config.MinTimeoutMs
	}
	retries := opts.Retries
	if retries < 0 {
		retries = config.DefaultRetryCount
	}

	var lastErr error
	for attempt := 1; attempt <= retries+1; attempt++ {
		out, err := e.runOnce(ctx, args, timeoutMs, opts.Dir)
		if err == nil {
			return out, nil
		}
		lastErr = err

		// The parent context being done means the caller gave up;
		// retrying would only mask that.
		if ctx.Err() != nil {
			return nil, lastErr
		}

		if attempt <= retries {
			delay := time.Duration(attempt) * time.Second
			e.logger.Warn("Command failed, retrying", map[string]interface{}{
				"args":    strings.Join(args, " "),
				"attempt": attempt,
				"delayMs": delay.Milliseconds(),
				"error":   err.Error(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, lastErr
			}
		}
	}

	return nil, lastErr
}

func (e *Executor) runOnce(ctx context.Context, args []string, timeoutMs int, dir string) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	cmd := exec.CommandContext(callCtx, e.binary, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	e.logger.Debug("Command finished", map[string]interface{}{
		"args":       strings.Join(args, " "),
		"durationMs": elapsed.Milliseconds(),
		"ok":         err == nil,
	})

	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, errors.New(errors.Timeout,
				fmt.Sprintf("%s timed out after %dms", e.binary, timeoutMs), err)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, errors.New(errors.ToolError,
			fmt.Sprintf("%s failed: %s", e.binary, msg), err)
	}

	return stdout.Bytes(), nil
}
