package main

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/hakim/secureval/internal/pipeline"
	"github.com/hakim/secureval/internal/storage"
	"github.com/hakim/secureval/internal/tools"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full risk analysis pipeline for a domain",
	Long: `Discover, fingerprint and score the web surface of a target domain.

Stages run in order: discover, fingerprint, portscan, tls, evaluate, report.
Stages can be selected with --stages, skipped with --skip or chosen through a
named preset. A crashed run picks up where it left off with --resume.

Results are saved to:
  {scan_dir}/{target}_{timestamp}/raw/          (structured JSON per stage)
  {scan_dir}/{target}_{timestamp}/reports/      (risk, treatment, KPI, diff and PDF reports)

Examples:
  secureval analyze -d example.com
  secureval analyze -d example.com --preset quick
  secureval analyze -d example.com --stages evaluate,report --scan-dir scans/example.com_20260301_140000
  secureval analyze -d example.com --resume`,
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, _ := cmd.Flags().GetString("domain")
		scanDir, _ := cmd.Flags().GetString("scan-dir")
		stagesFlag, _ := cmd.Flags().GetString("stages")
		skipFlag, _ := cmd.Flags().GetString("skip")
		resume, _ := cmd.Flags().GetBool("resume")
		presetName, _ := cmd.Flags().GetString("preset")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		webhookURL, _ := cmd.Flags().GetString("notify-webhook")
		skipPDF, _ := cmd.Flags().GetBool("skip-pdf")
		includeServices, _ := cmd.Flags().GetBool("include-services")
		versionFilter, _ := cmd.Flags().GetBool("version-filter")
		noCache, _ := cmd.Flags().GetBool("no-cache")

		if cfg == nil {
			return errNoConfig
		}

		stageList := cfg.Stages.Enable
		skipList := cfg.Stages.Skip
		if !cmd.Flags().Changed("include-services") {
			includeServices = cfg.Risk.IncludeServiceProducts
		}
		if !cmd.Flags().Changed("version-filter") {
			versionFilter = cfg.NVD.VersionFilter
		}

		if presetName != "" {
			preset, err := pipeline.GetPreset(presetName)
			if err != nil {
				return err
			}
			fmt.Printf("[*] Using preset: %s (%s)\n", preset.Name, preset.Description)

			stageList = preset.Stages
			if !cmd.Flags().Changed("skip-pdf") {
				skipPDF = preset.SkipPDF
			}
			if !cmd.Flags().Changed("include-services") {
				includeServices = preset.IncludeServices
			}
		}

		if stagesFlag != "" {
			stageList = splitCSV(stagesFlag)
		}
		if skipFlag != "" {
			skipList = splitCSV(skipFlag)
		}
		for _, name := range append(append([]string{}, stageList...), skipList...) {
			if !isStage(name) {
				return fmt.Errorf("unknown stage %q, valid stages: %s", name, strings.Join(pipeline.StageOrder, ", "))
			}
		}

		scope := scopeFromConfig(domain)
		if _, err := netip.ParseAddr(domain); err == nil {
			if err := scope.ValidateIP(domain); err != nil {
				return fmt.Errorf("scope check failed: %w", err)
			}
		} else if len(cfg.Scope.AllowedDomains) > 0 {
			if err := scope.ValidateTarget(domain); err != nil {
				return fmt.Errorf("scope check failed: %w", err)
			}
			fmt.Printf("[*] Scope validated: %s is in scope\n", domain)
		}

		// fail fast on missing required tools before any directory is created
		available := preflight(stageList, skipList)
		for _, r := range available {
			if r.Tool.Required && !r.Found && stageSelected(toolStage(r.Tool.Name), stageList, skipList) {
				return fmt.Errorf("required tool %q not found. Install with: %s", r.Tool.Name, r.Tool.InstallCmd)
			}
		}
		if !toolFound(available, "nmap") {
			skipList = appendIfMissing(skipList, pipeline.StagePortScan)
		}
		if !toolFound(available, "tlsx") {
			skipList = appendIfMissing(skipList, pipeline.StageTLS)
		}

		if scanDir != "" {
			for _, sub := range []string{storage.RawPath(scanDir, ""), storage.ReportPath(scanDir, "")} {
				if err := storage.EnsureDir(sub); err != nil {
					return fmt.Errorf("preparing scan directory: %w", err)
				}
			}
		}

		store, err := storage.NewStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer store.Close()

		stages := buildStages(stageOptions{
			Target:          domain,
			SkipSubfinder:   !toolFound(available, "subfinder"),
			SkipHttpx:       !toolFound(available, "httpx"),
			IncludeServices: includeServices,
			VersionFilter:   versionFilter,
			NoCache:         noCache,
			SkipPDF:         skipPDF,
		}, store)

		pipelineCfg := pipeline.PipelineConfig{
			Target:  domain,
			BaseDir: cfg.ScanDir,
			ScanDir: scanDir,
			Stages:  stageList,
			Skip:    skipList,
			Resume:  resume,
			Timeout: timeout,
			OnStageStart: func(name string, index, total int) {
				fmt.Printf("[*] Stage %d/%d: %s...\n", index+1, total, name)
			},
		}

		fmt.Printf("[*] Starting risk analysis for %s\n", domain)

		result, err := pipeline.RunPipeline(context.Background(), pipelineCfg, stages, store)
		if err != nil {
			return fmt.Errorf("pipeline failed: %w", err)
		}

		versions := make(map[string]string)
		for _, r := range available {
			if r.Found {
				versions[r.Tool.Name] = r.Version
			}
		}
		if err := store.RecordToolVersions(result.ScanID, versions); err != nil {
			fmt.Printf("[!] Warning: could not record tool versions: %v\n", err)
		}

		if webhookURL == "" {
			webhookURL = cfg.Notify.WebhookURL
		}
		if webhookURL != "" {
			notify := pipeline.NotifyConfig{WebhookURL: webhookURL}
			var counts *pipeline.RiskCounts
			if eval, err := loadEvaluation(result.ScanDir); err == nil {
				counts = pipeline.CountRisk(eval.Records, eval.KPIs)
			}
			if err := notify.SendCompletion(context.Background(), result, counts); err != nil {
				fmt.Printf("[!] Warning: webhook notification failed: %v\n", err)
			} else {
				fmt.Printf("[+] Completion notification sent to %s\n", webhookURL)
			}
		}

		fmt.Println()
		fmt.Printf("[+] Analysis complete!\n")
		fmt.Printf("    Target:    %s\n", result.Target)
		fmt.Printf("    Scan ID:   %s\n", result.ScanID)
		fmt.Printf("    Scan dir:  %s\n", result.ScanDir)
		fmt.Printf("    Status:    %s\n", result.Status)
		fmt.Printf("    Elapsed:   %s\n", result.Elapsed.Round(time.Second))
		fmt.Printf("    Stages:    %s\n", strings.Join(result.StagesRun, " -> "))

		if result.Failed() {
			fmt.Println()
			fmt.Println("[!] Stage errors:")
			for _, name := range pipeline.StageOrder {
				if msg, ok := result.StageErrors[name]; ok {
					fmt.Printf("    %-12s %s\n", name+":", msg)
				}
			}
		}

		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringP("domain", "d", "", "Target domain to analyze (required)")
	analyzeCmd.Flags().String("scan-dir", "", "Use an existing scan directory (creates a new one if empty)")
	analyzeCmd.Flags().String("stages", "", "Comma-separated stage names to run (e.g. evaluate,report)")
	analyzeCmd.Flags().String("skip", "", "Comma-separated stage names to skip")
	analyzeCmd.Flags().Bool("resume", false, "Resume the last incomplete scan for this domain")
	analyzeCmd.Flags().String("preset", "", "Named preset: "+strings.Join(pipeline.PresetNames(), ", "))
	analyzeCmd.Flags().Duration("timeout", 2*time.Hour, "Total pipeline timeout")
	analyzeCmd.Flags().String("notify-webhook", "", "HTTP webhook URL to POST a completion summary to")
	analyzeCmd.Flags().Bool("skip-pdf", false, "Skip PDF report generation")
	analyzeCmd.Flags().Bool("include-services", false, "Score nmap service products as technologies")
	analyzeCmd.Flags().Bool("version-filter", false, "Drop CVEs whose affected versions exclude the detected version")
	analyzeCmd.Flags().Bool("no-cache", false, "Bypass the persistent CVE cache")

	analyzeCmd.MarkFlagRequired("domain")

	rootCmd.AddCommand(analyzeCmd)
}

// preflight checks every tool the selected stages may run.
func preflight(stageList, skipList []string) []tools.CheckResult {
	results := tools.CheckTools(tools.WithBinaries(tools.DefaultTools(), toolPaths()))

	fmt.Println("[*] Pre-flight tool check:")
	for _, r := range results {
		if !stageSelected(toolStage(r.Tool.Name), stageList, skipList) {
			continue
		}
		status := "ok"
		if !r.Found {
			if r.Tool.Required {
				status = "MISSING (required)"
			} else {
				status = "not found (optional, stage degraded)"
			}
		}
		fmt.Printf("    %-12s %s\n", r.Tool.Name+":", status)
	}
	return results
}

// toolStage names the stage that runs a tool.
func toolStage(tool string) string {
	switch tool {
	case "assetfinder", "subfinder":
		return pipeline.StageDiscover
	case "whatweb", "httpx":
		return pipeline.StageFingerprint
	case "nmap":
		return pipeline.StagePortScan
	case "tlsx":
		return pipeline.StageTLS
	default:
		return ""
	}
}

func stageSelected(stage string, stageList, skipList []string) bool {
	for _, s := range skipList {
		if s == stage {
			return false
		}
	}
	if len(stageList) == 0 {
		return true
	}
	for _, s := range stageList {
		if s == stage {
			return true
		}
	}
	return false
}

func isStage(name string) bool {
	for _, s := range pipeline.StageOrder {
		if s == name {
			return true
		}
	}
	return false
}

func toolFound(results []tools.CheckResult, name string) bool {
	for _, r := range results {
		if r.Tool.Name == name {
			return r.Found
		}
	}
	return false
}

func appendIfMissing(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

