package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/risk"
)

// Data is everything the report writers render for one evaluated scan.
type Data struct {
	Target      string
	GeneratedAt time.Time
	Records     []models.RiskRecord
	Summaries   map[string]models.EndpointSummary
	KPIs        models.KPIs
	Treatment   []models.TreatmentEntry
	Assets      []models.Asset
	History     []models.ScanMeta
}

func (d *Data) date() string {
	if d.GeneratedAt.IsZero() {
		return time.Now().Format("2006-01-02 15:04:05")
	}
	return d.GeneratedAt.Format("2006-01-02 15:04:05")
}

// WriteRiskReport renders the per-endpoint risk assessment as markdown.
func WriteRiskReport(d *Data, outputPath string) error {
	var b strings.Builder

	b.WriteString("# Risk Assessment Report\n\n")
	b.WriteString(fmt.Sprintf("**Target:** %s\n", d.Target))
	b.WriteString(fmt.Sprintf("**Date:** %s\n", d.date()))
	b.WriteString(fmt.Sprintf("**Endpoints:** %d | **Technologies:** %d | **CVEs:** %d | **Average risk:** %.2f\n\n",
		d.KPIs.TotalEndpoints, d.KPIs.TotalTechnologies, d.KPIs.TotalCVEs, d.KPIs.AverageRisk))

	b.WriteString("## Findings by Criticality\n\n")
	b.WriteString("| Criticality | Findings |\n")
	b.WriteString("|-------------|----------|\n")
	for _, c := range models.AllCriticalities() {
		b.WriteString(fmt.Sprintf("| %s | %d |\n", c, d.KPIs.CriticalityCounts[c]))
	}
	b.WriteString("\n")

	endpoints := risk.Endpoints(d.Records)

	b.WriteString("## Endpoints\n\n")
	if len(endpoints) > 0 {
		b.WriteString("| Endpoint | Technologies | CVEs | Max Risk | Avg Risk | Criticality |\n")
		b.WriteString("|----------|--------------|------|----------|----------|-------------|\n")
		for _, ep := range endpoints {
			s := d.Summaries[ep]
			b.WriteString(fmt.Sprintf("| %s | %d | %d | %.2f | %.2f | %s |\n",
				mdCell(ep), s.TotalTechnologies, s.TotalCVEs, s.MaxRisk, s.AverageRisk, s.Criticality))
		}
	} else {
		b.WriteString("None found.\n")
	}
	b.WriteString("\n")

	b.WriteString("## Findings\n\n")
	if len(endpoints) == 0 {
		b.WriteString("None found.\n")
	}
	for _, ep := range endpoints {
		b.WriteString(fmt.Sprintf("### %s\n\n", ep))
		b.WriteString("| Technology | Version | Service | OS | Asset | AV | CVSS | P | V | Risk | Criticality | CVEs |\n")
		b.WriteString("|------------|---------|---------|----|-------|----|------|---|---|------|-------------|------|\n")
		for _, r := range d.Records {
			if r.Endpoint != ep {
				continue
			}
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %.2f | %.1f | %d | %d | %.2f | %s | %s |\n",
				mdCell(r.Technology), dash(r.Version), dash(string(r.ServiceType)), dash(r.OperatingSystem),
				dash(r.AssetName), r.AssetValue, r.CVSSMax, r.Probability, r.Vulnerability, r.Risk,
				r.Criticality, dash(strings.Join(r.CVEs, ", "))))
		}
		b.WriteString("\n")
	}

	return writeFile(outputPath, b.String())
}

// WriteTreatmentReport renders the treatment plan, highest risk first.
func WriteTreatmentReport(d *Data, outputPath string) error {
	var b strings.Builder

	b.WriteString("# Risk Treatment Plan\n\n")
	b.WriteString(fmt.Sprintf("**Target:** %s\n", d.Target))
	b.WriteString(fmt.Sprintf("**Date:** %s\n\n", d.date()))

	if len(d.Treatment) == 0 {
		b.WriteString("No findings to treat.\n")
		return writeFile(outputPath, b.String())
	}

	b.WriteString("| Endpoint | Technology | Risk | Criticality | Strategy |\n")
	b.WriteString("|----------|------------|------|-------------|----------|\n")
	for _, t := range d.Treatment {
		b.WriteString(fmt.Sprintf("| %s | %s | %.2f | %s | %s |\n",
			mdCell(t.Endpoint), mdCell(t.Technology), t.Risk, t.Criticality, t.Strategy))
	}
	b.WriteString("\n")

	b.WriteString("## Recommended Actions\n\n")
	for _, s := range []models.Treatment{
		models.TreatmentAvoid, models.TreatmentMitigate, models.TreatmentMitigateTransfer,
		models.TreatmentAcceptOrMitigate, models.TreatmentAccept,
	} {
		var entries []models.TreatmentEntry
		for _, t := range d.Treatment {
			if t.Strategy == s {
				entries = append(entries, t)
			}
		}
		if len(entries) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("### %s (%d)\n\n", s, len(entries)))
		for _, action := range entries[0].Actions {
			b.WriteString(fmt.Sprintf("- %s\n", action))
		}
		b.WriteString("\n")
	}

	return writeFile(outputPath, b.String())
}

// WriteKPIReport renders the KPI dashboard.
func WriteKPIReport(d *Data, outputPath string) error {
	var b strings.Builder
	k := d.KPIs

	b.WriteString("# Risk KPIs\n\n")
	b.WriteString(fmt.Sprintf("**Target:** %s\n", d.Target))
	b.WriteString(fmt.Sprintf("**Date:** %s\n\n", d.date()))

	b.WriteString("| Indicator | Value |\n")
	b.WriteString("|-----------|-------|\n")
	b.WriteString(fmt.Sprintf("| Endpoints | %d |\n", k.TotalEndpoints))
	b.WriteString(fmt.Sprintf("| Technologies | %d |\n", k.TotalTechnologies))
	b.WriteString(fmt.Sprintf("| CVEs | %d |\n", k.TotalCVEs))
	b.WriteString(fmt.Sprintf("| Average risk | %.2f |\n", k.AverageRisk))
	b.WriteString(fmt.Sprintf("| Highest CVSS | %.1f |\n", k.MaxCVSS))
	b.WriteString(fmt.Sprintf("| High-risk endpoints | %d |\n", k.HighRiskEndpoints))
	b.WriteString(fmt.Sprintf("| Vulnerable technologies | %d |\n", k.VulnerableTechnologies))
	for _, c := range models.AllCriticalities() {
		b.WriteString(fmt.Sprintf("| %s findings | %d |\n", c, k.CriticalityCounts[c]))
	}
	b.WriteString("\n")

	return writeFile(outputPath, b.String())
}

// mdCell keeps a value from breaking a markdown table row.
func mdCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return mdCell(s)
}

// writeFile writes content to path, wrapping any OS error with context.
func writeFile(outputPath, content string) error {
	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing report to %s: %w", outputPath, err)
	}
	return nil
}
