package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var unsafeTargetChars = regexp.MustCompile(`[^a-zA-Z0-9.\-]+`)

// SanitizeTarget replaces characters unsafe for filesystem paths
// Allows alphanumeric, dots, and hyphens. Replaces everything else with underscore.
func SanitizeTarget(target string) string {
	return unsafeTargetChars.ReplaceAllString(target, "_")
}

// ScanDirPath generates a consistent directory path for a scan
// Format: {baseDir}/{target}_{YYYYMMDD}_{HHMMSS}
func ScanDirPath(baseDir string, target string, startedAt time.Time) string {
	sanitized := SanitizeTarget(target)
	timestamp := startedAt.Format("20060102_150405")
	dirName := fmt.Sprintf("%s_%s", sanitized, timestamp)
	return filepath.Join(baseDir, dirName)
}

// CreateScanDir creates a scan directory with subdirectories for reports and raw output
func CreateScanDir(baseDir string, target string, startedAt time.Time) (string, error) {
	scanPath := ScanDirPath(baseDir, target, startedAt)

	// Create main scan directory
	if err := EnsureDir(scanPath); err != nil {
		return "", err
	}

	// Create subdirectories
	reportsDir := filepath.Join(scanPath, "reports")
	if err := EnsureDir(reportsDir); err != nil {
		return "", err
	}

	rawDir := filepath.Join(scanPath, "raw")
	if err := EnsureDir(rawDir); err != nil {
		return "", err
	}

	return scanPath, nil
}

// EnsureDir creates a directory and all parent directories if they don't exist
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// RawPath returns the path of a structured result file inside a scan directory
func RawPath(scanDir, name string) string {
	return filepath.Join(scanDir, "raw", name)
}

// ReportPath returns the path of a rendered report inside a scan directory
func ReportPath(scanDir, name string) string {
	return filepath.Join(scanDir, "reports", name)
}

// WriteJSON marshals v with indentation and writes it to path
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadJSON reads path and unmarshals it into v
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadOptionalJSON behaves like ReadJSON but reports found=false instead of
// an error when path does not exist
func ReadOptionalJSON(path string, v any) (bool, error) {
	err := ReadJSON(path, v)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Raw result files written under {scan_dir}/raw by the pipeline stages
const (
	FileSubdomains  = "subdomains.json"
	FileFingerprint = "fingerprint.json"
	FilePorts       = "ports.json"
	FileTLS         = "tls.json"
	FileRisk        = "risk.json"
	FileSummary     = "summary.json"
	FileKPIs        = "kpis.json"
	FileTreatment   = "treatment.json"
	FileMetadata    = "metadata.json"
	FileDiff        = "diff.json"
)

// Rendered reports written under {scan_dir}/reports
const (
	ReportRisk      = "risk.md"
	ReportTreatment = "treatment.md"
	ReportKPIs      = "kpis.md"
	ReportDiff      = "diff.md"
	ReportPDF       = "risk.pdf"
)
