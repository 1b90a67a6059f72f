package main

import (
	"fmt"
	"time"

	"github.com/hakim/secureval/internal/analysis"
	"github.com/hakim/secureval/internal/diff"
	"github.com/hakim/secureval/internal/fingerprint"
	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/portscan"
	"github.com/hakim/secureval/internal/report"
	"github.com/hakim/secureval/internal/storage"
	"github.com/hakim/secureval/internal/tlsscan"
)

func readFingerprint(scanDir string) (*fingerprint.FingerprintResult, error) {
	var fp fingerprint.FingerprintResult
	if err := storage.ReadJSON(storage.RawPath(scanDir, storage.FileFingerprint), &fp); err != nil {
		return nil, fmt.Errorf("reading %s (run fingerprint first): %w", storage.FileFingerprint, err)
	}
	return &fp, nil
}

// loadEndpoints reads the fingerprinted endpoints and attaches port and TLS
// results when those stages ran.
func loadEndpoints(scanDir string) ([]models.Endpoint, error) {
	fp, err := readFingerprint(scanDir)
	if err != nil {
		return nil, err
	}
	endpoints := fp.Endpoints

	var ports portscan.PortScanResult
	found, err := storage.ReadOptionalJSON(storage.RawPath(scanDir, storage.FilePorts), &ports)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", storage.FilePorts, err)
	}
	if found {
		ports.Apply(endpoints)
	}

	var tls tlsscan.TLSScanResult
	found, err = storage.ReadOptionalJSON(storage.RawPath(scanDir, storage.FileTLS), &tls)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", storage.FileTLS, err)
	}
	if found {
		tls.Apply(endpoints)
	}

	return endpoints, nil
}

// writeEvaluation persists every part of an evaluate run under raw/.
func writeEvaluation(scanDir string, r *analysis.Result) error {
	files := []struct {
		name string
		v    any
	}{
		{storage.FileRisk, r.Records},
		{storage.FileSummary, r.Summaries},
		{storage.FileKPIs, r.KPIs},
		{storage.FileTreatment, r.Treatment},
		{storage.FileMetadata, r.Metadata},
	}
	for _, f := range files {
		if err := storage.WriteJSON(storage.RawPath(scanDir, f.name), f.v); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
	}
	return nil
}

// loadEvaluation reads back what writeEvaluation stored.
func loadEvaluation(scanDir string) (*analysis.Result, error) {
	r := &analysis.Result{}
	if err := storage.ReadJSON(storage.RawPath(scanDir, storage.FileRisk), &r.Records); err != nil {
		return nil, fmt.Errorf("reading %s (run evaluate first): %w", storage.FileRisk, err)
	}

	optional := []struct {
		name string
		v    any
	}{
		{storage.FileSummary, &r.Summaries},
		{storage.FileKPIs, &r.KPIs},
		{storage.FileTreatment, &r.Treatment},
		{storage.FileMetadata, &r.Metadata},
	}
	for _, f := range optional {
		if _, err := storage.ReadOptionalJSON(storage.RawPath(scanDir, f.name), f.v); err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.name, err)
		}
	}
	return r, nil
}

// loadReportData gathers an evaluated scan plus the inventory and history
// the PDF report shows.
func loadReportData(store *storage.Store, scanDir, target string) (*report.Data, error) {
	r, err := loadEvaluation(scanDir)
	if err != nil {
		return nil, err
	}

	assets, err := store.ListAssets()
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}

	scans, err := store.ListScans(target)
	if err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	history := make([]models.ScanMeta, 0, len(scans))
	for _, s := range scans {
		history = append(history, *s)
	}

	generated := r.Metadata.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	return &report.Data{
		Target:      target,
		GeneratedAt: generated,
		Records:     r.Records,
		Summaries:   r.Summaries,
		KPIs:        r.KPIs,
		Treatment:   r.Treatment,
		Assets:      assets,
		History:     history,
	}, nil
}

// writeReports renders the markdown reports and, unless skipped, the PDF.
// A failed PDF is a warning since the markdown reports carry the same data.
func writeReports(d *report.Data, scanDir string, skipPDF bool) error {
	if err := storage.EnsureDir(storage.ReportPath(scanDir, "")); err != nil {
		return fmt.Errorf("ensuring reports dir: %w", err)
	}

	writers := []struct {
		name  string
		write func(*report.Data, string) error
	}{
		{storage.ReportRisk, report.WriteRiskReport},
		{storage.ReportTreatment, report.WriteTreatmentReport},
		{storage.ReportKPIs, report.WriteKPIReport},
	}
	for _, w := range writers {
		path := storage.ReportPath(scanDir, w.name)
		if err := w.write(d, path); err != nil {
			return err
		}
		fmt.Printf("    [>] Report written to %s\n", path)
	}

	if skipPDF {
		return nil
	}
	pdfPath := storage.ReportPath(scanDir, storage.ReportPDF)
	if err := report.WriteRiskPDF(d, pdfPath); err != nil {
		fmt.Printf("    [!] Warning: PDF generation failed: %v\n", err)
		return nil
	}
	fmt.Printf("    [>] PDF report written to %s\n", pdfPath)
	return nil
}

// writeDiff compares scanDir against previousDir and writes the diff report
// into scanDir.
func writeDiff(scanDir, previousDir string) (*diff.DiffResult, error) {
	current, err := diff.LoadSnapshot(scanDir)
	if err != nil {
		return nil, fmt.Errorf("loading current snapshot: %w", err)
	}
	previous, err := diff.LoadSnapshot(previousDir)
	if err != nil {
		return nil, fmt.Errorf("loading previous snapshot: %w", err)
	}

	result := diff.ComputeDiff(current, previous)

	path := storage.ReportPath(scanDir, storage.ReportDiff)
	if err := report.WriteDiffReport(result, path); err != nil {
		return nil, err
	}
	fmt.Printf("    [>] Diff report written to %s\n", path)
	return result, nil
}
