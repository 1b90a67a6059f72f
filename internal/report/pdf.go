package report

import (
	"fmt"
	"strings"

	"github.com/hakim/secureval/internal/models"
	"github.com/jung-kurt/gofpdf"
)

// riskColumns is the layout of the findings table; widths in mm.
var riskColumns = []struct {
	title string
	width float64
	align string
}{
	{"Endpoint", 52, "L"},
	{"Technology", 38, "L"},
	{"CVSS", 14, "C"},
	{"AV", 14, "C"},
	{"P", 9, "C"},
	{"V", 9, "C"},
	{"Risk", 18, "C"},
	{"Criticality", 24, "C"},
}

// WriteRiskPDF renders the risk report as a PDF: an overview page with the
// findings table, then the asset inventory and the scan history when present.
func WriteRiskPDF(d *Data, outputPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Risk Assessment Report", true)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	addPDFHeader(pdf, tr, d)
	addPDFOverview(pdf, d)
	addPDFFindings(pdf, tr, d.Records)

	if len(d.Assets) > 0 {
		pdf.AddPage()
		addPDFAssets(pdf, tr, d.Assets)
	}
	if len(d.History) > 0 {
		pdf.AddPage()
		addPDFHistory(pdf, tr, d.History)
	}

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("writing PDF to %s: %w", outputPath, err)
	}
	return nil
}

func addPDFHeader(pdf *gofpdf.Fpdf, tr func(string) string, d *Data) {
	pdf.SetFont("Arial", "B", 20)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 12, "Risk Assessment Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 12)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 7, tr("Target: "+d.Target), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, "Generated: "+d.date(), "", 1, "L", false, 0, "")
	pdf.Ln(6)
}

func addPDFOverview(pdf *gofpdf.Fpdf, d *Data) {
	sectionTitle(pdf, "Overview")

	k := d.KPIs
	stats := []struct {
		label string
		value string
	}{
		{"Endpoints", fmt.Sprintf("%d", k.TotalEndpoints)},
		{"Technologies", fmt.Sprintf("%d", k.TotalTechnologies)},
		{"CVEs", fmt.Sprintf("%d", k.TotalCVEs)},
		{"Average risk", fmt.Sprintf("%.2f", k.AverageRisk)},
		{"Highest CVSS", fmt.Sprintf("%.1f", k.MaxCVSS)},
		{"High-risk endpoints", fmt.Sprintf("%d", k.HighRiskEndpoints)},
	}
	for _, c := range models.AllCriticalities() {
		stats = append(stats, struct {
			label string
			value string
		}{c.String() + " findings", fmt.Sprintf("%d", k.CriticalityCounts[c])})
	}

	for i, s := range stats {
		x := 15.0
		if i%2 == 1 {
			x = 105.0
		}
		pdf.SetX(x)
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(50, 7, s.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(0, 102, 204)
		pdf.CellFormat(30, 7, s.value, "", 0, "R", false, 0, "")
		if i%2 == 1 || i == len(stats)-1 {
			pdf.Ln(7)
		}
	}
	pdf.Ln(6)
}

func addPDFFindings(pdf *gofpdf.Fpdf, tr func(string) string, records []models.RiskRecord) {
	sectionTitle(pdf, "Findings")

	if len(records) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No technologies were evaluated", "", 1, "L", false, 0, "")
		return
	}

	header := func() {
		pdf.SetFillColor(240, 240, 240)
		pdf.SetFont("Arial", "B", 9)
		pdf.SetTextColor(60, 60, 60)
		for i, c := range riskColumns {
			ln := 0
			if i == len(riskColumns)-1 {
				ln = 1
			}
			pdf.CellFormat(c.width, 8, c.title, "1", ln, "C", true, 0, "")
		}
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()

	pdf.SetFont("Arial", "", 8)
	for _, r := range records {
		if pdf.GetY()+7 > pageHeight-bottom-15 {
			pdf.AddPage()
			header()
			pdf.SetFont("Arial", "", 8)
		}

		cells := []string{
			truncate(r.Endpoint, 34),
			truncate(r.Technology, 24),
			fmt.Sprintf("%.1f", r.CVSSMax),
			fmt.Sprintf("%.2f", r.AssetValue),
			fmt.Sprintf("%d", r.Probability),
			fmt.Sprintf("%d", r.Vulnerability),
			fmt.Sprintf("%.2f", r.Risk),
			r.Criticality.String(),
		}
		for i, c := range riskColumns {
			pdf.SetTextColor(60, 60, 60)
			if i >= len(riskColumns)-2 {
				cr, cg, cb := criticalityColor(r.Criticality)
				pdf.SetTextColor(cr, cg, cb)
			}
			ln := 0
			if i == len(riskColumns)-1 {
				ln = 1
			}
			pdf.CellFormat(c.width, 7, tr(cells[i]), "1", ln, c.align, false, 0, "")
		}
	}
	pdf.Ln(6)
}

func addPDFAssets(pdf *gofpdf.Fpdf, tr func(string) string, assets []models.Asset) {
	sectionTitle(pdf, "Asset Inventory")

	widths := []float64{45, 25, 25, 40, 30, 15}
	titles := []string{"Name", "Type", "Status", "Owner", "CIA", "Value"}
	tableHeader(pdf, widths, titles)

	pdf.SetFont("Arial", "", 8)
	pdf.SetTextColor(60, 60, 60)
	for _, a := range assets {
		row := []string{
			truncate(a.Name, 30), string(a.Type), string(a.Status), truncate(a.Owner, 26),
			a.CIAImpact(), fmt.Sprintf("%.2f", a.Value),
		}
		for i, w := range widths {
			ln := 0
			if i == len(widths)-1 {
				ln = 1
			}
			pdf.CellFormat(w, 7, tr(row[i]), "1", ln, "L", false, 0, "")
		}
	}
}

func addPDFHistory(pdf *gofpdf.Fpdf, tr func(string) string, history []models.ScanMeta) {
	sectionTitle(pdf, "Scan History")

	widths := []float64{38, 50, 25, 67}
	titles := []string{"Started", "Target", "Status", "Stages"}
	tableHeader(pdf, widths, titles)

	pdf.SetFont("Arial", "", 8)
	pdf.SetTextColor(60, 60, 60)
	for _, s := range history {
		row := []string{
			s.StartedAt.Format("2006-01-02 15:04"),
			truncate(s.Target, 32),
			string(s.Status),
			truncate(strings.Join(s.StagesRun, ", "), 45),
		}
		for i, w := range widths {
			ln := 0
			if i == len(widths)-1 {
				ln = 1
			}
			pdf.CellFormat(w, 7, tr(row[i]), "1", ln, "L", false, 0, "")
		}
	}
}

func sectionTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func tableHeader(pdf *gofpdf.Fpdf, widths []float64, titles []string) {
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 9)
	pdf.SetTextColor(60, 60, 60)
	for i, w := range widths {
		ln := 0
		if i == len(widths)-1 {
			ln = 1
		}
		pdf.CellFormat(w, 8, titles[i], "1", ln, "C", true, 0, "")
	}
}

// criticalityColor returns the RGB color used for a criticality band.
func criticalityColor(c models.Criticality) (r, g, b int) {
	switch c {
	case models.CriticalityCritical:
		return 220, 53, 69
	case models.CriticalityHigh:
		return 255, 149, 0
	case models.CriticalityMedium:
		return 204, 153, 0
	default:
		return 52, 199, 89
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
