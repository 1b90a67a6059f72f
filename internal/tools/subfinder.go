package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// SubfinderResult is one line of subfinder -oJ output
type SubfinderResult struct {
	Host   string `json:"host"`
	Source string `json:"source"`
}

// RunSubfinder executes subfinder in JSON mode with source attribution.
// If threads > 0 it is passed as -t.
func RunSubfinder(ctx context.Context, domain string, threads int, extraArgs []string, binaryPath string) ([]SubfinderResult, error) {
	binary := binaryOr(binaryPath, "subfinder")

	args := withFlags(extraArgs, "-silent", "-oJ", "-cs")
	args = append(args, "-d", domain)
	if threads > 0 {
		args = append(args, "-t", strconv.Itoa(threads))
	}

	result, err := RunTool(ctx, binary, args...)
	if err != nil {
		return nil, fmt.Errorf("subfinder execution failed: %w", err)
	}

	return ParseSubfinder(result.Stdout)
}

// ParseSubfinder decodes subfinder JSONL output, skipping malformed lines.
func ParseSubfinder(data []byte) ([]SubfinderResult, error) {
	var results []SubfinderResult
	err := scanJSONLines("subfinder", data, func(line []byte) error {
		var r SubfinderResult
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
