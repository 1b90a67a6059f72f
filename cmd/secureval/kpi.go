package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/risk"
	"github.com/spf13/cobra"
)

var kpiCmd = &cobra.Command{
	Use:   "kpi",
	Short: "Show the risk KPIs of an evaluated scan",
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, _ := cmd.Flags().GetString("domain")
		scanDir, _ := cmd.Flags().GetString("scan-dir")

		if cfg == nil {
			return errNoConfig
		}

		dir, err := resolveScanDir(scanDir, domain)
		if err != nil {
			return err
		}

		eval, err := loadEvaluation(dir)
		if err != nil {
			return err
		}

		k := eval.KPIs
		if k.CriticalityCounts == nil {
			summaries := eval.Summaries
			if summaries == nil {
				summaries = risk.Aggregate(eval.Records)
			}
			k = risk.ComputeKPIs(eval.Records, summaries)
		}

		fmt.Printf("[*] KPIs for %s\n\n", dir)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Endpoints\t%d\n", k.TotalEndpoints)
		fmt.Fprintf(w, "Technologies\t%d\n", k.TotalTechnologies)
		fmt.Fprintf(w, "CVEs\t%d\n", k.TotalCVEs)
		fmt.Fprintf(w, "Average risk\t%.2f\n", k.AverageRisk)
		fmt.Fprintf(w, "Highest CVSS\t%.1f\n", k.MaxCVSS)
		fmt.Fprintf(w, "High-risk endpoints\t%d\n", k.HighRiskEndpoints)
		fmt.Fprintf(w, "Vulnerable technologies\t%d\n", k.VulnerableTechnologies)
		for _, c := range models.AllCriticalities() {
			fmt.Fprintf(w, "%s findings\t%d\n", c, k.CriticalityCounts[c])
		}
		return w.Flush()
	},
}

func init() {
	kpiCmd.Flags().StringP("domain", "d", "", "Target domain (uses its latest scan)")
	kpiCmd.Flags().String("scan-dir", "", "Scan directory to read")
	rootCmd.AddCommand(kpiCmd)
}
