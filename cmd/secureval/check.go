package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/hakim/secureval/internal/tools"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check for required external tools",
	Long: `Verify that the external tools secureval drives are installed.
Binary paths configured under tools.*.path are honoured when a config file is
found. Shows version information and installation instructions for missing
tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		toolList := tools.DefaultTools()
		if cfg != nil {
			toolList = tools.WithBinaries(toolList, toolPaths())
		}

		results := tools.CheckTools(toolList)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Tool\tStatus\tVersion\tPurpose")
		fmt.Fprintln(w, "----\t------\t-------\t-------")

		foundCount := 0
		requiredMissing := 0

		for _, result := range results {
			status := "[-]"
			version := "-"

			if result.Found {
				status = "[+]"
				foundCount++
				if result.Version != "" && result.Version != "unknown" {
					version = result.Version
				}
			} else if result.Tool.Required {
				requiredMissing++
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", result.Tool.Name, status, version, result.Tool.Purpose)
		}

		w.Flush()

		fmt.Println()
		missingTools := false
		for _, result := range results {
			if result.Found {
				continue
			}
			if !missingTools {
				fmt.Println("Missing tools:")
				missingTools = true
			}
			required := ""
			if result.Tool.Required {
				required = " (REQUIRED)"
			}
			fmt.Printf("  %s%s\n    Install: %s\n", result.Tool.Name, required, result.Tool.InstallCmd)
		}

		if cfg != nil {
			if cfg.NVD.APIKey == "" {
				fmt.Println("[!] No NVD API key configured: lookups are limited to 5 requests per 30 seconds")
			} else {
				fmt.Println("[+] NVD API key configured")
			}
		}

		fmt.Println()
		fmt.Printf("Summary: %d/%d tools found", foundCount, len(results))
		if requiredMissing > 0 {
			fmt.Printf(", %d required tools missing", requiredMissing)
		}
		fmt.Println()

		if requiredMissing > 0 {
			return fmt.Errorf("required tools are missing")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
