package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/storage"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show scan history for a domain",
	Long: `Display past scans for a target domain, newest first.

Each row shows the scan ID, start time, status, the stages that
completed and, for evaluated scans, the highest risk found. Pass an ID to
'history show' for the tool versions a scan ran with.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, _ := cmd.Flags().GetString("domain")
		limit, _ := cmd.Flags().GetInt("limit")

		if cfg == nil {
			return errNoConfig
		}

		store, err := storage.NewStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer store.Close()

		scans, err := store.ListScans(domain)
		if err != nil {
			return fmt.Errorf("listing scans for %s: %w", domain, err)
		}

		if len(scans) == 0 {
			fmt.Printf("No scan history found for %s\n", domain)
			return nil
		}

		if limit > 0 && len(scans) > limit {
			scans = scans[:limit]
		}

		const separator = "--------------------------------------------------------------------------------------------------------------"

		fmt.Printf("\nScan History for %s\n", domain)
		fmt.Println(separator)
		fmt.Printf("  %-3s  %-36s  %-17s  %-9s  %-9s  %s\n", "#", "Scan ID", "Started", "Status", "Max risk", "Stages")
		fmt.Println(separator)

		for i, scan := range scans {
			fmt.Printf("  %-3d  %-36s  %-17s  %-9s  %-9s  %s\n",
				i+1,
				scan.ID,
				scan.StartedAt.UTC().Format("2006-01-02 15:04"),
				formatStatus(scan.Status),
				maxRiskOf(scan.ScanDir),
				formatStages(scan.StagesRun))
		}

		fmt.Println(separator)
		fmt.Printf("Total: %d scan(s)\n\n", len(scans))

		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <scan-id>",
	Short: "Show one scan in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *storage.Store) error {
			scan, err := store.GetScan(args[0])
			if errors.Is(err, storage.ErrScanNotFound) {
				return fmt.Errorf("no scan with ID %q", args[0])
			}
			if err != nil {
				return err
			}

			fmt.Printf("Scan ID:    %s\n", scan.ID)
			fmt.Printf("Target:     %s\n", scan.Target)
			fmt.Printf("Status:     %s\n", formatStatus(scan.Status))
			fmt.Printf("Started:    %s\n", scan.StartedAt.UTC().Format(time.RFC3339))
			if scan.CompletedAt != nil {
				fmt.Printf("Completed:  %s\n", scan.CompletedAt.UTC().Format(time.RFC3339))
			}
			fmt.Printf("Directory:  %s\n", dashIfEmpty(scan.ScanDir))
			fmt.Printf("Stages:     %s\n", formatStages(scan.StagesRun))
			fmt.Printf("Max risk:   %s\n", maxRiskOf(scan.ScanDir))

			if len(scan.ToolVersions) > 0 {
				fmt.Println("Tools:")
				for _, name := range slices.Sorted(maps.Keys(scan.ToolVersions)) {
					fmt.Printf("  %-12s %s\n", name, scan.ToolVersions[name])
				}
			}
			return nil
		})
	},
}

func formatStatus(s models.ScanStatus) string {
	if s == "" {
		return "-"
	}
	return string(s)
}

func formatStages(stages []string) string {
	if len(stages) == 0 {
		return "-"
	}
	return strings.Join(stages, ", ")
}

// maxRiskOf reads the highest risk of an evaluated scan, or "-".
func maxRiskOf(scanDir string) string {
	if scanDir == "" {
		return "-"
	}
	var records []models.RiskRecord
	found, err := storage.ReadOptionalJSON(storage.RawPath(scanDir, storage.FileRisk), &records)
	if err != nil || !found || len(records) == 0 {
		return "-"
	}
	highest := records[0].Risk
	for _, r := range records[1:] {
		if r.Risk > highest {
			highest = r.Risk
		}
	}
	return fmt.Sprintf("%.2f", highest)
}

func init() {
	historyCmd.Flags().StringP("domain", "d", "", "Target domain (required)")
	historyCmd.Flags().Int("limit", 10, "Maximum number of scans to display")
	historyCmd.MarkFlagRequired("domain")
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}
