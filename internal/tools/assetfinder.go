package tools

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
)

// RunAssetfinder executes assetfinder --subs-only for domain and returns the
// hostnames it printed, one per line, in output order.
func RunAssetfinder(ctx context.Context, domain string, extraArgs []string, binaryPath string) ([]string, error) {
	binary := binaryOr(binaryPath, "assetfinder")

	args := append(withFlags(extraArgs, "--subs-only"), domain)

	result, err := RunTool(ctx, binary, args...)
	if err != nil {
		return nil, fmt.Errorf("assetfinder execution failed: %w", err)
	}

	return ParseLines(result.Stdout), nil
}

// ParseLines splits plain-text tool output into trimmed, non-empty lines.
func ParseLines(data []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// withFlags copies extra and appends each flag it does not already carry.
func withFlags(extra []string, flags ...string) []string {
	args := append([]string{}, extra...)
	for _, f := range flags {
		if !slices.Contains(args, f) {
			args = append(args, f)
		}
	}
	return args
}
