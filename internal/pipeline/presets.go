package pipeline

import (
	"fmt"
	"sort"
	"strings"
)

// Preset is a named selection of stages with matching evaluation options.
type Preset struct {
	Name        string
	Description string
	Stages      []string

	// IncludeServices adds nmap service products to the evaluated technologies.
	IncludeServices bool
	SkipPDF         bool
}

var builtinPresets = map[string]Preset{
	"full": {
		Name:            "full",
		Description:     "Every stage: discovery, fingerprinting, port and TLS scans, risk evaluation and all reports",
		Stages:          []string{StageDiscover, StageFingerprint, StagePortScan, StageTLS, StageEvaluate, StageReport},
		IncludeServices: true,
	},
	"quick": {
		Name:        "quick",
		Description: "Discovery, fingerprinting and risk evaluation with markdown reports only",
		Stages:      []string{StageDiscover, StageFingerprint, StageEvaluate, StageReport},
		SkipPDF:     true,
	},
	"passive": {
		Name:        "passive",
		Description: "No port or TLS scanning; risk is scored from web fingerprints alone",
		Stages:      []string{StageDiscover, StageFingerprint, StageEvaluate, StageReport},
	},
}

// BuiltinPresets returns a copy of the preset registry.
func BuiltinPresets() map[string]Preset {
	out := make(map[string]Preset, len(builtinPresets))
	for k, v := range builtinPresets {
		out[k] = v
	}
	return out
}

// PresetNames returns the preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(builtinPresets))
	for name := range builtinPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPreset returns a preset by name.
func GetPreset(name string) (*Preset, error) {
	p, ok := builtinPresets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q, available: %s", name, strings.Join(PresetNames(), ", "))
	}
	cp := p
	cp.Stages = append([]string(nil), p.Stages...)
	return &cp, nil
}
