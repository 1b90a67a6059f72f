package tools

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hakim/secureval/internal/telemetry"
)

// ToolResult contains the result of a tool execution
type ToolResult struct {
	Stdout   []byte
	Stderr   string
	ExitCode int
}

// RunTool executes a tool binary with the given arguments and returns the result.
// Stdout and stderr are drained concurrently so a chatty tool cannot block on
// a full pipe; the subprocess is reaped WaitDelay after ctx is cancelled.
func RunTool(ctx context.Context, binary string, args ...string) (*ToolResult, error) {
	return RunToolWithInput(ctx, nil, binary, args...)
}

// RunToolWithInput is RunTool with lines written to the tool's stdin, one per
// line. Used by tools that read their target list from stdin (httpx, tlsx).
func RunToolWithInput(ctx context.Context, input []string, binary string, args ...string) (*ToolResult, error) {
	name := filepath.Base(binary)

	result, err := runTool(ctx, input, binary, args...)
	if err != nil {
		telemetry.ToolRuns.WithLabelValues(name, "error").Inc()
		return result, err
	}
	telemetry.ToolRuns.WithLabelValues(name, "ok").Inc()
	return result, nil
}

func runTool(ctx context.Context, input []string, binary string, args ...string) (*ToolResult, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.WaitDelay = 5 * time.Second

	if input != nil {
		cmd.Stdin = strings.NewReader(strings.Join(input, "\n") + "\n")
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	var stdoutBuf bytes.Buffer
	var stderrBuf bytes.Buffer

	stdoutDone := make(chan error, 1)
	stderrDone := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(stdoutPipe)
		scanner.Buffer(make([]byte, 64*1024), 4*1024*1024) // whatweb lines get long
		for scanner.Scan() {
			stdoutBuf.Write(scanner.Bytes())
			stdoutBuf.WriteByte('\n')
		}
		stdoutDone <- scanner.Err()
	}()

	go func() {
		_, err := io.Copy(&stderrBuf, stderrPipe)
		stderrDone <- err
	}()

	<-stdoutDone
	<-stderrDone

	err = cmd.Wait()

	result := &ToolResult{
		Stdout:   stdoutBuf.Bytes(),
		Stderr:   stderrBuf.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}

	if err != nil {
		if ctx.Err() != nil {
			return result, fmt.Errorf("command cancelled: %w", ctx.Err())
		}
		return result, fmt.Errorf("command failed with exit code %d: %w", result.ExitCode, err)
	}

	return result, nil
}

// binaryOr returns path when set, otherwise the default executable name.
func binaryOr(path, fallback string) string {
	if path != "" {
		return path
	}
	return fallback
}

// scanJSONLines calls fn for every non-empty line of JSONL output. Lines fn
// rejects are reported as warnings and skipped.
func scanJSONLines(tool string, data []byte, fn func(line []byte) error) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			fmt.Printf("[!] Warning: failed to parse %s JSON line: %v\n", tool, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s output: %w", tool, err)
	}
	return nil
}
