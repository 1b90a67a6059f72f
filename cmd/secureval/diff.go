package main

import (
	"fmt"

	"github.com/hakim/secureval/internal/storage"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare two scans and report how risk changed",
	Long: `Compare a scan against the previous scan of the same domain.

Endpoints, findings (endpoint and technology pairs), CVEs and per-finding
risk are compared. The report is written to {scan_dir}/reports/diff.md and
the structured result to {scan_dir}/raw/diff.json.

When --compare is not given the scan recorded before the current one is
looked up in the scan database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, _ := cmd.Flags().GetString("domain")
		scanDir, _ := cmd.Flags().GetString("scan-dir")
		compareDir, _ := cmd.Flags().GetString("compare")

		if cfg == nil {
			return errNoConfig
		}

		current, err := resolveScanDir(scanDir, domain)
		if err != nil {
			return err
		}
		fmt.Printf("[*] Current scan directory: %s\n", current)

		if compareDir == "" {
			err := withStore(func(store *storage.Store) error {
				prev, err := previousScanDir(store, domain, current)
				compareDir = prev
				return err
			})
			if err != nil {
				return fmt.Errorf("looking up scan history: %w", err)
			}
			if compareDir == "" {
				fmt.Println("[!] No previous scan found for comparison")
				return nil
			}
		}
		fmt.Printf("[*] Previous scan directory: %s\n", compareDir)

		if err := storage.EnsureDir(storage.ReportPath(current, "")); err != nil {
			return fmt.Errorf("ensuring reports dir: %w", err)
		}

		result, err := writeDiff(current, compareDir)
		if err != nil {
			return err
		}

		rawPath := storage.RawPath(current, storage.FileDiff)
		if err := storage.WriteJSON(rawPath, result); err != nil {
			return err
		}

		fmt.Println()
		fmt.Printf("[+] Diff complete!\n")
		fmt.Printf("    Endpoints: +%d new, -%d removed\n", len(result.NewEndpoints), len(result.RemovedEndpoints))
		fmt.Printf("    Findings:  +%d new, -%d resolved, %d risk changes\n",
			len(result.NewFindings), len(result.ResolvedFindings), len(result.RiskChanges))
		fmt.Printf("    CVEs:      +%d new, -%d resolved\n", len(result.NewCVEs), len(result.ResolvedCVEs))
		fmt.Printf("    Max risk:  %.2f -> %.2f\n", result.PreviousMaxRisk, result.CurrentMaxRisk)

		return nil
	},
}

func init() {
	diffCmd.Flags().StringP("domain", "d", "", "Target domain (required)")
	diffCmd.Flags().String("scan-dir", "", "Current scan directory (latest scan if empty)")
	diffCmd.Flags().String("compare", "", "Previous scan directory (scan before the current one if empty)")
	diffCmd.MarkFlagRequired("domain")
	rootCmd.AddCommand(diffCmd)
}
