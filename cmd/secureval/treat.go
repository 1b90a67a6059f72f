package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/risk"
	"github.com/spf13/cobra"
)

var treatCmd = &cobra.Command{
	Use:   "treat",
	Short: "Show the risk treatment plan of an evaluated scan",
	Long: `Print the treatment strategy for every finding of a scan, highest risk
first, followed by the recommended actions for each strategy.

Strategies by risk: below 10 Accept, below 25 Accept or Mitigate, below 50
Mitigate or Transfer, below 80 Mitigate, otherwise Avoid.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, _ := cmd.Flags().GetString("domain")
		scanDir, _ := cmd.Flags().GetString("scan-dir")
		minLevel, _ := cmd.Flags().GetString("min-criticality")

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

		plan := eval.Treatment
		if len(plan) == 0 && len(eval.Records) > 0 {
			plan = risk.BuildTreatmentPlan(eval.Records)
		}

		threshold := models.CriticalityLow
		if minLevel != "" {
			c, ok := models.ParseCriticality(minLevel)
			if !ok {
				return fmt.Errorf("unknown criticality %q", minLevel)
			}
			threshold = c
		}

		fmt.Printf("[*] Treatment plan for %s\n\n", dir)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Risk\tCriticality\tStrategy\tEndpoint\tTechnology")
		fmt.Fprintln(w, "----\t-----------\t--------\t--------\t----------")
		shown := map[models.Treatment]bool{}
		var order []models.Treatment
		for _, t := range plan {
			if t.Criticality.Rank() < threshold.Rank() {
				continue
			}
			fmt.Fprintf(w, "%.2f\t%s\t%s\t%s\t%s\n", t.Risk, t.Criticality, t.Strategy, t.Endpoint, t.Technology)
			if !shown[t.Strategy] {
				shown[t.Strategy] = true
				order = append(order, t.Strategy)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}

		for _, s := range order {
			fmt.Printf("\n%s:\n", s)
			for _, action := range actionsFor(plan, s) {
				fmt.Printf("  - %s\n", action)
			}
		}
		return nil
	},
}

// actionsFor returns the actions attached to the first entry with strategy s.
func actionsFor(plan []models.TreatmentEntry, s models.Treatment) []string {
	for _, t := range plan {
		if t.Strategy == s {
			return t.Actions
		}
	}
	return nil
}

func init() {
	treatCmd.Flags().StringP("domain", "d", "", "Target domain (uses its latest scan)")
	treatCmd.Flags().String("scan-dir", "", "Scan directory to read")
	treatCmd.Flags().String("min-criticality", "", "Only show findings at or above this level (Low, Medium, High, Critical)")
	rootCmd.AddCommand(treatCmd)
}
