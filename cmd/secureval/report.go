package main

import (
	"fmt"

	"github.com/hakim/secureval/internal/storage"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Regenerate the reports of an evaluated scan",
	Long: `Render the risk, treatment and KPI markdown reports and the PDF risk
report from the raw results of an evaluated scan. The PDF includes the current
asset inventory and the scan history of the domain.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, _ := cmd.Flags().GetString("domain")
		scanDir, _ := cmd.Flags().GetString("scan-dir")
		skipPDF, _ := cmd.Flags().GetBool("skip-pdf")

		if cfg == nil {
			return errNoConfig
		}

		dir, err := resolveScanDir(scanDir, domain)
		if err != nil {
			return err
		}

		return withStore(func(store *storage.Store) error {
			target := domain
			if target == "" {
				eval, err := loadEvaluation(dir)
				if err != nil {
					return err
				}
				target = eval.Metadata.Target
			}

			data, err := loadReportData(store, dir, target)
			if err != nil {
				return err
			}

			fmt.Printf("[*] Writing reports for %s\n", dir)
			if err := writeReports(data, dir, skipPDF); err != nil {
				return err
			}
			fmt.Println("[+] Reports complete")
			return nil
		})
	},
}

func init() {
	reportCmd.Flags().StringP("domain", "d", "", "Target domain (uses its latest scan)")
	reportCmd.Flags().String("scan-dir", "", "Scan directory to read")
	reportCmd.Flags().Bool("skip-pdf", false, "Skip PDF report generation")
	rootCmd.AddCommand(reportCmd)
}
