package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hakim/secureval/internal/models"
)

// NotifyConfig configures the completion webhook.
type NotifyConfig struct {
	WebhookURL string // empty disables notifications
	Client     *http.Client
}

// RiskCounts is the risk digest attached to a completion notification.
type RiskCounts struct {
	Endpoints   int                        `json:"endpoints"`
	MaxRisk     float64                    `json:"max_risk"`
	AverageRisk float64                    `json:"average_risk"`
	Findings    map[models.Criticality]int `json:"findings"`
}

type completionPayload struct {
	Target         string            `json:"target"`
	ScanID         string            `json:"scan_id"`
	Status         string            `json:"status"`
	StagesRun      []string          `json:"stages_run"`
	ElapsedSeconds float64           `json:"elapsed_seconds"`
	Errors         map[string]string `json:"errors"`
	Risk           *RiskCounts       `json:"risk,omitempty"`
}

// CountRisk builds the digest from an evaluated run.
func CountRisk(records []models.RiskRecord, kpis models.KPIs) *RiskCounts {
	c := &RiskCounts{
		Endpoints:   kpis.TotalEndpoints,
		AverageRisk: kpis.AverageRisk,
		Findings:    make(map[models.Criticality]int),
	}
	for _, r := range records {
		c.Findings[r.Criticality]++
		if r.Risk > c.MaxRisk {
			c.MaxRisk = r.Risk
		}
	}
	return c
}

// SendCompletion posts the run outcome to the webhook. A nil or empty config
// is a no-op. Callers treat errors as warnings.
func (n *NotifyConfig) SendCompletion(ctx context.Context, result *PipelineResult, counts *RiskCounts) error {
	if n == nil || n.WebhookURL == "" {
		return nil
	}

	payload := completionPayload{
		Target:         result.Target,
		ScanID:         result.ScanID,
		Status:         result.Status,
		StagesRun:      result.StagesRun,
		ElapsedSeconds: result.Elapsed.Seconds(),
		Errors:         result.StageErrors,
		Risk:           counts,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: posting to %s: %w", n.WebhookURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}

	return nil
}
