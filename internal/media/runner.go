// Package media runs the external media tools: ffprobe for stream facts and
// ffmpeg for executing a processing graph.
package media

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// RunOptions adjust a single command invocation.
type RunOptions struct {
	Dir string
	Env []string
	// Stderr additionally receives the command's diagnostic stream, e.g. a
	// per-job log file.
	Stderr io.Writer
}

// RunResult holds the captured output of a finished command.
type RunResult struct {
	Stdout  []byte
	Stderr  []byte
	Elapsed time.Duration
}

// Runner executes one external command to completion.
type Runner interface {
	Run(ctx context.Context, command string, args []string, opts RunOptions) (RunResult, error)
}

// CmdRunner runs commands with os/exec. The context kills the process on
// cancellation.
type CmdRunner struct {
	Logger *slog.Logger
}

func (r CmdRunner) Run(ctx context.Context, command string, args []string, opts RunOptions) (RunResult, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = tee(&stderr, opts.Stderr)

	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger.Debug("exec", "cmd", command, "args", strings.Join(args, " "))

	start := time.Now()
	err := cmd.Run()
	res := RunResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), Elapsed: time.Since(start)}
	if err != nil {
		logger.Debug("exec failed", "cmd", command, "elapsed", res.Elapsed, "err", err)
	}
	return res, err
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

var _ Runner = CmdRunner{}
