package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/storage"
	"github.com/hakim/secureval/internal/tools"
	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover subdomains for a target domain",
	Long: `Run subdomain discovery on its own.

assetfinder is always used; subfinder adds passive sources when installed.
Results are normalized, deduplicated and restricted to the configured scope.

Results are saved to:
  - {scan_dir}/{target}_{timestamp}/raw/subdomains.json

Continue the same scan later with:
  secureval analyze -d <domain> --scan-dir <dir> --skip discover`,
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, _ := cmd.Flags().GetString("domain")
		skipSubfinder, _ := cmd.Flags().GetBool("skip-subfinder")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		if cfg == nil {
			return errNoConfig
		}

		checks := tools.CheckTools(tools.WithBinaries(tools.DefaultTools(), toolPaths()))
		if !toolFound(checks, "assetfinder") {
			return fmt.Errorf("required tool 'assetfinder' not found. Install with: go install -v github.com/tomnomnom/assetfinder@latest")
		}
		if !skipSubfinder && !toolFound(checks, "subfinder") {
			fmt.Println("[!] Warning: subfinder not found, using assetfinder only")
			skipSubfinder = true
		}

		scan := models.NewScan(domain)

		scanDir, err := storage.CreateScanDir(cfg.ScanDir, domain, scan.StartedAt)
		if err != nil {
			return fmt.Errorf("creating scan directory: %w", err)
		}
		scan.ScanDir = scanDir

		store, err := storage.NewStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer store.Close()

		scan.Status = models.StatusRunning
		if err := store.SaveScan(&scan.ScanMeta); err != nil {
			return fmt.Errorf("saving scan metadata: %w", err)
		}

		fmt.Printf("[*] Starting subdomain discovery for %s\n", domain)
		fmt.Printf("[*] Scan directory: %s\n", scanDir)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		result, err := runDiscoverStage(ctx, stageOptions{Target: domain, SkipSubfinder: skipSubfinder})
		if err != nil {
			_ = store.UpdateScanStatus(scan.ID, models.StatusFailed)
			return err
		}

		rawPath := storage.RawPath(scanDir, storage.FileSubdomains)
		if err := storage.WriteJSON(rawPath, result); err != nil {
			_ = store.UpdateScanStatus(scan.ID, models.StatusFailed)
			return err
		}

		scan.StagesRun = append(scan.StagesRun, "discover")
		if err := store.SaveScan(&scan.ScanMeta); err != nil {
			return fmt.Errorf("updating scan metadata: %w", err)
		}
		if err := store.UpdateScanStatus(scan.ID, models.StatusComplete); err != nil {
			return fmt.Errorf("updating scan status: %w", err)
		}

		fmt.Println()
		fmt.Printf("[+] Discovery complete!\n")
		fmt.Printf("    Scan ID: %s\n", scan.ID)
		fmt.Printf("    Total: %d | Unique: %d | Out of scope: %d\n",
			result.TotalFound, result.UniqueCount, result.OutOfScope)
		if verbose {
			for _, sub := range result.Subdomains {
				fmt.Printf("    %s (%s)\n", sub.Name, sub.Source)
			}
		}
		fmt.Printf("    Output: %s\n", rawPath)

		return nil
	},
}

func init() {
	discoverCmd.Flags().StringP("domain", "d", "", "Target domain to discover subdomains for (required)")
	discoverCmd.Flags().Bool("skip-subfinder", false, "Use assetfinder only")
	discoverCmd.Flags().Duration("timeout", 10*time.Minute, "Overall discovery timeout")

	discoverCmd.MarkFlagRequired("domain")

	rootCmd.AddCommand(discoverCmd)
}
