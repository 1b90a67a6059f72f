package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// WhatwebPlugin is one plugin match reported for a target. Versions and OS
// are empty when whatweb could not extract them.
type WhatwebPlugin struct {
	Name     string   `json:"name"`
	Versions []string `json:"version,omitempty"`
	Strings  []string `json:"string,omitempty"`
	OS       []string `json:"os,omitempty"`
}

// WhatwebResult is one target entry of whatweb --log-json output. Plugins
// keep the order whatweb wrote them in.
type WhatwebResult struct {
	Target     string          `json:"target"`
	HTTPStatus int             `json:"http_status"`
	Plugins    []WhatwebPlugin `json:"-"`
}

// UnmarshalJSON decodes the plugins object in document order.
func (r *WhatwebResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Target     string          `json:"target"`
		HTTPStatus int             `json:"http_status"`
		Plugins    json.RawMessage `json:"plugins"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Target = raw.Target
	r.HTTPStatus = raw.HTTPStatus
	r.Plugins = nil

	if len(raw.Plugins) == 0 || string(raw.Plugins) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw.Plugins))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("plugins: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := keyTok.(string)

		var body struct {
			Version []string `json:"version"`
			String  []string `json:"string"`
			OS      []string `json:"os"`
		}
		if err := dec.Decode(&body); err != nil {
			return fmt.Errorf("plugin %q: %w", name, err)
		}
		r.Plugins = append(r.Plugins, WhatwebPlugin{
			Name:     name,
			Versions: body.Version,
			Strings:  body.String,
			OS:       body.OS,
		})
	}
	_, err = dec.Token()
	return err
}

// Plugin returns the named plugin, matched case-insensitively.
func (r WhatwebResult) Plugin(name string) (WhatwebPlugin, bool) {
	for _, p := range r.Plugins {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return WhatwebPlugin{}, false
}

// RunWhatweb fingerprints every target with whatweb and returns one result
// per target it answered for. Targets are handed over with -i through a
// temporary file and results read back from --log-json.
func RunWhatweb(ctx context.Context, targets []string, threads int, extraArgs []string, binaryPath string) ([]WhatwebResult, error) {
	if len(targets) == 0 {
		return []WhatwebResult{}, nil
	}

	binary := binaryOr(binaryPath, "whatweb")

	inputFile, err := os.CreateTemp("", "whatweb-input-*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to create input temp file: %w", err)
	}
	defer os.Remove(inputFile.Name())
	if _, err := inputFile.WriteString(strings.Join(targets, "\n") + "\n"); err != nil {
		inputFile.Close()
		return nil, fmt.Errorf("failed to write whatweb targets: %w", err)
	}
	inputFile.Close()

	outputFile, err := os.CreateTemp("", "whatweb-output-*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to create output temp file: %w", err)
	}
	outputFile.Close()
	defer os.Remove(outputFile.Name())

	args := withFlags(extraArgs, "--no-errors", "-q")
	args = append(args, "-i", inputFile.Name(), "--log-json", outputFile.Name())
	if threads > 0 {
		args = append(args, "--max-threads", strconv.Itoa(threads))
	}

	if _, err := RunTool(ctx, binary, args...); err != nil {
		return nil, fmt.Errorf("whatweb execution failed: %w", err)
	}

	data, err := os.ReadFile(outputFile.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to read whatweb output: %w", err)
	}

	return ParseWhatweb(data)
}

// ParseWhatweb accepts both layouts whatweb has used for --log-json: a single
// JSON array, or one object per line (optionally wrapped in brackets with
// trailing commas). Malformed entries are skipped with a warning.
func ParseWhatweb(data []byte) ([]WhatwebResult, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []WhatwebResult{}, nil
	}

	if trimmed[0] == '[' {
		var results []WhatwebResult
		if err := json.Unmarshal(trimmed, &results); err == nil {
			return results, nil
		}
	}

	results := []WhatwebResult{}
	err := scanJSONLines("whatweb", trimmed, func(line []byte) error {
		line = bytes.TrimSuffix(line, []byte(","))
		if len(line) == 0 || string(line) == "[" || string(line) == "]" {
			return nil
		}
		var r WhatwebResult
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
