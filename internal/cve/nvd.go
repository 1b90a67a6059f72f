// Package cve looks up known vulnerabilities for technology names.
//
// Lookups go through a chain of Sources: a RunCache scoped to one evaluate
// run, an optional SQLiteCache persisted across runs, and the NVD client.
package cve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/telemetry"
)

// Source returns the vulnerabilities known for a technology keyword.
type Source interface {
	Lookup(ctx context.Context, keyword string) ([]models.VulnerabilityRecord, error)
}

// nvdResponse mirrors the subset of the NVD CVE API 2.0 document we read.
type nvdResponse struct {
	ResultsPerPage  int `json:"resultsPerPage"`
	TotalResults    int `json:"totalResults"`
	Vulnerabilities []struct {
		CVE nvdCVE `json:"cve"`
	} `json:"vulnerabilities"`
}

type nvdCVE struct {
	ID           string `json:"id"`
	Published    string `json:"published"`
	Descriptions []struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	} `json:"descriptions"`
	Metrics struct {
		CVSSMetricV40 []nvdMetric `json:"cvssMetricV40"`
		CVSSMetricV31 []nvdMetric `json:"cvssMetricV31"`
		CVSSMetricV30 []nvdMetric `json:"cvssMetricV30"`
		CVSSMetricV2  []nvdMetric `json:"cvssMetricV2"`
	} `json:"metrics"`
	Configurations []struct {
		Nodes []struct {
			CPEMatch []struct {
				Vulnerable            bool   `json:"vulnerable"`
				Criteria              string `json:"criteria"`
				VersionStartIncluding string `json:"versionStartIncluding"`
				VersionStartExcluding string `json:"versionStartExcluding"`
				VersionEndIncluding   string `json:"versionEndIncluding"`
				VersionEndExcluding   string `json:"versionEndExcluding"`
			} `json:"cpeMatch"`
		} `json:"nodes"`
	} `json:"configurations"`
}

type nvdMetric struct {
	Source       string `json:"source"`
	Type         string `json:"type"`
	BaseSeverity string `json:"baseSeverity"` // v2 keeps severity outside cvssData
	CVSSData     struct {
		Version      string  `json:"version"`
		VectorString string  `json:"vectorString"`
		BaseScore    float64 `json:"baseScore"`
		BaseSeverity string  `json:"baseSeverity"`
	} `json:"cvssData"`
}

// Client queries the NVD CVE API 2.0 by keyword.
type Client struct {
	baseURL        string
	apiKey         string
	resultsPerPage int
	httpClient     *http.Client
}

// NewClient creates an NVD client. An empty apiKey uses the public rate limit.
func NewClient(baseURL, apiKey string, resultsPerPage int, timeout time.Duration) *Client {
	return &Client{
		baseURL:        baseURL,
		apiKey:         apiKey,
		resultsPerPage: resultsPerPage,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// Lookup runs a keywordSearch for keyword and returns the parsed records.
func (c *Client) Lookup(ctx context.Context, keyword string) ([]models.VulnerabilityRecord, error) {
	records, err := c.lookup(ctx, keyword)
	if err != nil {
		telemetry.CVELookups.WithLabelValues("nvd", "error").Inc()
		return nil, err
	}
	telemetry.CVELookups.WithLabelValues("nvd", "ok").Inc()
	return records, nil
}

func (c *Client) lookup(ctx context.Context, keyword string) ([]models.VulnerabilityRecord, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid NVD URL %q: %w", c.baseURL, err)
	}
	q := u.Query()
	q.Set("keywordSearch", keyword)
	q.Set("resultsPerPage", strconv.Itoa(c.resultsPerPage))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building NVD request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("apiKey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying NVD for %q: %w", keyword, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("NVD returned status %d for %q", resp.StatusCode, keyword)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading NVD response: %w", err)
	}

	return ParseResponse(body)
}

// ParseResponse converts an NVD 2.0 JSON document into records. The CVSS
// score prefers v3.1 and falls back to v4.0, v3.0 and v2 in that order; a CVE
// without any metric keeps a nil score.
func ParseResponse(data []byte) ([]models.VulnerabilityRecord, error) {
	var doc nvdResponse
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing NVD response: %w", err)
	}

	records := make([]models.VulnerabilityRecord, 0, len(doc.Vulnerabilities))
	for _, v := range doc.Vulnerabilities {
		rec := models.VulnerabilityRecord{
			ID:        v.CVE.ID,
			Published: v.CVE.Published,
		}

		for _, d := range v.CVE.Descriptions {
			if d.Lang == "en" {
				rec.Description = d.Value
				break
			}
		}

		if m, version := pickMetric(v.CVE); m != nil {
			score := m.CVSSData.BaseScore
			rec.CVSS = &score
			rec.CVSSVersion = version
			rec.Severity = m.CVSSData.BaseSeverity
			if rec.Severity == "" {
				rec.Severity = m.BaseSeverity
			}
		}

		for _, cfg := range v.CVE.Configurations {
			for _, node := range cfg.Nodes {
				for _, m := range node.CPEMatch {
					if !m.Vulnerable {
						continue
					}
					rec.Affected = append(rec.Affected, models.CPERange{
						Criteria:              m.Criteria,
						VersionStartIncluding: m.VersionStartIncluding,
						VersionStartExcluding: m.VersionStartExcluding,
						VersionEndIncluding:   m.VersionEndIncluding,
						VersionEndExcluding:   m.VersionEndExcluding,
					})
				}
			}
		}

		records = append(records, rec)
	}

	return records, nil
}

func pickMetric(c nvdCVE) (*nvdMetric, string) {
	switch {
	case len(c.Metrics.CVSSMetricV31) > 0:
		return &c.Metrics.CVSSMetricV31[0], "3.1"
	case len(c.Metrics.CVSSMetricV40) > 0:
		return &c.Metrics.CVSSMetricV40[0], "4.0"
	case len(c.Metrics.CVSSMetricV30) > 0:
		return &c.Metrics.CVSSMetricV30[0], "3.0"
	case len(c.Metrics.CVSSMetricV2) > 0:
		return &c.Metrics.CVSSMetricV2[0], "2.0"
	}
	return nil, ""
}
