package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/hakim/secureval/internal/diff"
	"github.com/hakim/secureval/internal/models"
)

// WriteDiffReport renders the delta between two consecutive scans.
func WriteDiffReport(result *diff.DiffResult, outputPath string) error {
	var b strings.Builder

	b.WriteString("# Scan Diff Report\n\n")
	b.WriteString(fmt.Sprintf("**Date:** %s\n\n", time.Now().UTC().Format("2006-01-02 15:04:05 UTC")))

	if result.IsEmpty() {
		b.WriteString("No changes detected.\n")
		return writeFile(outputPath, b.String())
	}

	writeDiffSummaryTable(&b, result)
	writeList(&b, "New Endpoints", "+", result.NewEndpoints)
	writeList(&b, "Removed Endpoints", "-", result.RemovedEndpoints)
	writeFindingTable(&b, "New Findings", "+", result.NewFindings)
	writeFindingTable(&b, "Resolved Findings", "-", result.ResolvedFindings)
	writeRiskChanges(&b, result.RiskChanges)
	writeList(&b, "New CVEs", "+", result.NewCVEs)
	writeList(&b, "Resolved CVEs", "-", result.ResolvedCVEs)

	return writeFile(outputPath, b.String())
}

func writeDiffSummaryTable(b *strings.Builder, r *diff.DiffResult) {
	b.WriteString("## Summary\n\n")
	b.WriteString("| Category | Previous | Current | Change |\n")
	b.WriteString("|----------|----------|---------|--------|\n")
	b.WriteString(fmt.Sprintf("| Endpoints | %d | %d | %s |\n",
		r.PreviousEndpointCount, r.CurrentEndpointCount,
		formatChange(len(r.NewEndpoints), len(r.RemovedEndpoints))))
	b.WriteString(fmt.Sprintf("| Findings | %d | %d | %s |\n",
		r.PreviousFindingCount, r.CurrentFindingCount,
		formatChange(len(r.NewFindings), len(r.ResolvedFindings))))
	b.WriteString(fmt.Sprintf("| Max risk | %.2f | %.2f | %+.2f |\n",
		r.PreviousMaxRisk, r.CurrentMaxRisk, r.CurrentMaxRisk-r.PreviousMaxRisk))
	b.WriteString("\n")
}

// writeList renders a bullet list section. Skipped when empty.
func writeList(b *strings.Builder, title, sign string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("## %s (%s%d)\n\n", title, sign, len(items)))
	for _, item := range items {
		b.WriteString(fmt.Sprintf("- %s\n", item))
	}
	b.WriteString("\n")
}

// writeFindingTable renders risk records. Skipped when empty.
func writeFindingTable(b *strings.Builder, title, sign string, records []models.RiskRecord) {
	if len(records) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("## %s (%s%d)\n\n", title, sign, len(records)))
	b.WriteString("| Endpoint | Technology | Risk | Criticality |\n")
	b.WriteString("|----------|------------|------|-------------|\n")
	for _, r := range records {
		b.WriteString(fmt.Sprintf("| %s | %s | %.2f | %s |\n",
			mdCell(r.Endpoint), mdCell(r.Technology), r.Risk, r.Criticality))
	}
	b.WriteString("\n")
}

func writeRiskChanges(b *strings.Builder, changes []diff.RiskChange) {
	if len(changes) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("## Risk Changes (%d)\n\n", len(changes)))
	b.WriteString("| Endpoint | Technology | Previous | Current | Delta |\n")
	b.WriteString("|----------|------------|----------|---------|-------|\n")
	for _, c := range changes {
		b.WriteString(fmt.Sprintf("| %s | %s | %.2f (%s) | %.2f (%s) | %+.2f |\n",
			mdCell(c.Endpoint), mdCell(c.Technology),
			c.PreviousRisk, c.PreviousCriticality, c.CurrentRisk, c.CurrentCriticality, c.Delta()))
	}
	b.WriteString("\n")
}

// formatChange returns a change string such as "+3 / -1", or "none".
func formatChange(added, removed int) string {
	if added == 0 && removed == 0 {
		return "none"
	}
	parts := make([]string, 0, 2)
	if added > 0 {
		parts = append(parts, fmt.Sprintf("+%d", added))
	}
	if removed > 0 {
		parts = append(parts, fmt.Sprintf("-%d", removed))
	}
	return strings.Join(parts, " / ")
}
