package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/hakim/secureval/internal/config"
	"github.com/hakim/secureval/internal/telemetry"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "secureval",
	Short: "Recon-driven risk scoring for web-facing assets",
	Long: `SecureVal discovers the web surface of a domain, fingerprints the
technologies behind each endpoint, looks up their known CVEs and scores every
finding against a registered asset inventory.

It drives external tools (assetfinder, subfinder, whatweb, httpx, nmap, tlsx)
and the NVD CVE API, then writes risk, treatment and KPI reports for each scan
and tracks how risk changes between scans.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; it only carries secrets such as NVD_API_KEY
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Printf("[!] Warning: failed to read .env: %v\n", err)
		}

		skipConfig := map[string]bool{
			"init":    true,
			"help":    true,
			"version": true,
		}
		if skipConfig[cmd.Name()] {
			return nil
		}

		loaded, err := config.Load(cfgFile)
		if err != nil {
			if cmd.Name() == "check" {
				return nil
			}
			return fmt.Errorf("failed to load config: %w. Run 'secureval init' first", err)
		}
		cfg = loaded
		telemetry.InitMetrics()

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil || cfg.MetricsFile == "" {
			return nil
		}
		if err := telemetry.WriteTextfile(cfg.MetricsFile); err != nil {
			fmt.Printf("[!] Warning: failed to write metrics to %s: %v\n", cfg.MetricsFile, err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: ./secureval.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.Version = "0.1.0-dev"
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
