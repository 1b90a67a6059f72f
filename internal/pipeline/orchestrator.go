package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/storage"
	"github.com/hakim/secureval/internal/telemetry"
)

// Canonical stage names, in execution order.
const (
	StageDiscover    = "discover"
	StageFingerprint = "fingerprint"
	StagePortScan    = "portscan"
	StageTLS         = "tls"
	StageEvaluate    = "evaluate"
	StageReport      = "report"
)

// StageOrder lists every stage name in the order the orchestrator runs them.
var StageOrder = []string{StageDiscover, StageFingerprint, StagePortScan, StageTLS, StageEvaluate, StageReport}

// ScanStore is the part of the bbolt store the orchestrator needs.
type ScanStore interface {
	SaveScan(meta *models.ScanMeta) error
	ListScans(target string) ([]*models.ScanMeta, error)
	UpdateScanStatus(id string, status models.ScanStatus) error
}

// StageFunc runs one stage. All stage I/O happens under scanDir.
type StageFunc func(ctx context.Context, scanDir string) error

// Stage pairs a stage name with its implementation.
type Stage struct {
	Name string
	Run  StageFunc
}

// PipelineConfig controls a single RunPipeline call.
type PipelineConfig struct {
	Target string

	// BaseDir is where a new scan directory is created when ScanDir is empty.
	BaseDir string
	ScanDir string

	// Stages restricts the run to these names. Order still follows the
	// stage slice handed to RunPipeline. Empty means all.
	Stages []string
	Skip   []string

	// Resume skips stages already recorded in the newest scan for Target.
	Resume bool

	// Timeout caps all stages combined. Zero means no extra deadline.
	Timeout time.Duration

	OnStageStart func(name string, index, total int)
	OnStageDone  func(name string, index, total int, err error, elapsed time.Duration)
}

// PipelineResult summarises a finished run.
type PipelineResult struct {
	Target      string
	ScanDir     string
	ScanID      string
	StagesRun   []string
	StageErrors map[string]string
	Elapsed     time.Duration

	// Status is "complete" when every attempted stage succeeded, "partial"
	// otherwise.
	Status string
}

// Failed reports whether any attempted stage returned an error.
func (r *PipelineResult) Failed() bool {
	return len(r.StageErrors) > 0
}

// RunPipeline runs the selected stages in order. A failing or panicking
// stage is recorded and the remaining stages still run. The scan record is
// saved as running before the first stage, its StagesRun list is updated
// after each successful stage, and it ends as complete or failed.
func RunPipeline(ctx context.Context, cfg PipelineConfig, stages []Stage, store ScanStore) (*PipelineResult, error) {
	if cfg.Target == "" {
		return nil, fmt.Errorf("pipeline: target is required")
	}
	if store == nil {
		return nil, fmt.Errorf("pipeline: store must not be nil")
	}

	selected := filterStages(stages, cfg.Stages, cfg.Skip)
	if len(selected) == 0 {
		return nil, fmt.Errorf("pipeline: no stages remain after filtering")
	}

	runCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	scanDir := cfg.ScanDir

	done := map[string]bool{}
	var meta *models.ScanMeta

	if cfg.Resume {
		prior, err := findResumableScan(store, cfg.Target, scanDir)
		if err != nil {
			fmt.Printf("[!] Warning: resume lookup failed, starting fresh: %v\n", err)
		} else if prior != nil {
			meta = prior
			for _, s := range prior.StagesRun {
				done[s] = true
			}
			if scanDir == "" {
				scanDir = prior.ScanDir
			}
			fmt.Printf("[*] Resuming scan %s (%d stages already complete)\n", prior.ID, len(done))
		}
	}

	if scanDir == "" {
		if cfg.BaseDir == "" {
			return nil, fmt.Errorf("pipeline: either scan dir or base dir is required")
		}
		var err error
		scanDir, err = storage.CreateScanDir(cfg.BaseDir, cfg.Target, time.Now())
		if err != nil {
			return nil, fmt.Errorf("pipeline: creating scan directory: %w", err)
		}
		fmt.Printf("[*] Created scan directory: %s\n", scanDir)
	}

	if meta == nil {
		scan := models.NewScan(cfg.Target)
		scan.ScanDir = scanDir
		scan.Status = models.StatusRunning
		if err := store.SaveScan(&scan.ScanMeta); err != nil {
			return nil, fmt.Errorf("pipeline: saving scan record: %w", err)
		}
		meta = &scan.ScanMeta
		fmt.Printf("[*] Scan ID: %s\n", meta.ID)
	} else if err := store.UpdateScanStatus(meta.ID, models.StatusRunning); err != nil {
		fmt.Printf("[!] Warning: could not mark scan as running: %v\n", err)
	}

	result := &PipelineResult{
		Target:      cfg.Target,
		ScanDir:     scanDir,
		ScanID:      meta.ID,
		StageErrors: make(map[string]string),
	}

	start := time.Now()
	total := len(selected)

	for i, stage := range selected {
		if done[stage.Name] {
			fmt.Printf("[*] Skipping stage %q (already completed)\n", stage.Name)
			continue
		}

		if cfg.OnStageStart != nil {
			cfg.OnStageStart(stage.Name, i, total)
		}

		stageStart := time.Now()
		stageErr := runStageIsolated(runCtx, stage, scanDir)
		elapsed := time.Since(stageStart)

		result.StagesRun = append(result.StagesRun, stage.Name)

		outcome := "ok"
		if stageErr != nil {
			outcome = "error"
			result.StageErrors[stage.Name] = stageErr.Error()
			fmt.Printf("[!] Stage %q failed (%s): %v\n", stage.Name, elapsed.Round(time.Millisecond), stageErr)
		} else {
			fmt.Printf("[+] Stage %q complete (%s)\n", stage.Name, elapsed.Round(time.Millisecond))
		}
		telemetry.StageDuration.WithLabelValues(stage.Name, outcome).Observe(elapsed.Seconds())

		if cfg.OnStageDone != nil {
			cfg.OnStageDone(stage.Name, i, total, stageErr, elapsed)
		}

		if stageErr == nil {
			meta.StagesRun = appendUnique(meta.StagesRun, stage.Name)
			if err := store.SaveScan(meta); err != nil {
				fmt.Printf("[!] Warning: could not persist stages run after %q: %v\n", stage.Name, err)
			}
		}
	}

	result.Elapsed = time.Since(start)

	finalStatus := models.StatusComplete
	result.Status = "complete"
	if result.Failed() {
		finalStatus = models.StatusFailed
		result.Status = "partial"
	}

	if err := store.UpdateScanStatus(meta.ID, finalStatus); err != nil {
		fmt.Printf("[!] Warning: could not update final scan status: %v\n", err)
	}

	fmt.Printf("[*] Pipeline finished in %s, status: %s\n", result.Elapsed.Round(time.Millisecond), result.Status)

	return result, nil
}

// filterStages applies the allow list and then the skip list, keeping the
// order of stages.
func filterStages(stages []Stage, allow, skip []string) []Stage {
	allowSet := toSet(allow)
	skipSet := toSet(skip)

	var out []Stage
	for _, s := range stages {
		if len(allowSet) > 0 && !allowSet[s.Name] {
			continue
		}
		if skipSet[s.Name] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// runStageIsolated turns a stage panic into an error.
func runStageIsolated(ctx context.Context, s Stage, scanDir string) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("stage %q panicked: %v", s.Name, r)
		}
	}()
	return s.Run(ctx, scanDir)
}

// findResumableScan prefers the scan recorded for scanDir and otherwise
// returns the newest scan for target. Nil when there is none.
func findResumableScan(store ScanStore, target, scanDir string) (*models.ScanMeta, error) {
	scans, err := store.ListScans(target)
	if err != nil {
		return nil, fmt.Errorf("listing scans for %q: %w", target, err)
	}
	if len(scans) == 0 {
		return nil, nil
	}

	for _, scan := range scans {
		if scan.ScanDir == scanDir {
			return scan, nil
		}
	}

	return scans[0], nil
}

func appendUnique(slice []string, s string) []string {
	for _, existing := range slice {
		if existing == s {
			return slice
		}
	}
	return append(slice, s)
}

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}
