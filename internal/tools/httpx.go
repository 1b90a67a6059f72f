package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// HttpxResult is one line of httpx -json output
type HttpxResult struct {
	URL        string   `json:"url"`
	Input      string   `json:"input"`
	Host       string   `json:"host"`
	StatusCode int      `json:"status_code"`
	Title      string   `json:"title"`
	WebServer  string   `json:"webserver"`
	Tech       []string `json:"tech"`
	CDN        bool     `json:"cdn"`
	CDNName    string   `json:"cdn_name"`
}

// RunHttpx probes the targets with httpx and returns status, title and the
// Server header for each live one. Targets are written to stdin.
func RunHttpx(ctx context.Context, targets []string, threads int, extraArgs []string, binaryPath string) ([]HttpxResult, error) {
	if len(targets) == 0 {
		return []HttpxResult{}, nil
	}

	binary := binaryOr(binaryPath, "httpx")

	if threads <= 0 {
		threads = 50
	}

	args := withFlags(extraArgs, "-json", "-silent", "-sc", "-title", "-server", "-cdn")
	args = append(args, "-t", strconv.Itoa(threads))

	result, err := RunToolWithInput(ctx, targets, binary, args...)
	if err != nil {
		stderr := ""
		if result != nil {
			stderr = result.Stderr
		}
		return nil, fmt.Errorf("httpx execution failed: %w\nstderr: %s", err, stderr)
	}

	return ParseHttpx(result.Stdout)
}

// ParseHttpx decodes httpx JSONL output, skipping malformed lines.
func ParseHttpx(data []byte) ([]HttpxResult, error) {
	results := []HttpxResult{}
	err := scanJSONLines("httpx", data, func(line []byte) error {
		var r HttpxResult
		if err := json.Unmarshal(line, &r); err != nil {
			return err
		}
		results = append(results, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
