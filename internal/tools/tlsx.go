package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// TlsxResult is one line of tlsx -json output
type TlsxResult struct {
	Host       string    `json:"host"`
	Port       string    `json:"port"`
	TLSVersion string    `json:"tls_version"`
	Cipher     string    `json:"cipher"`
	SubjectCN  string    `json:"subject_cn"`
	SubjectAN  []string  `json:"subject_an"`
	IssuerCN   string    `json:"issuer_cn"`
	NotAfter   time.Time `json:"not_after"`
	Expired    bool      `json:"expired"`
	SelfSigned bool      `json:"self_signed"`
}

// RunTlsx inspects the TLS endpoint of each host and returns one result per
// successful handshake. Hosts are written to stdin.
func RunTlsx(ctx context.Context, hosts []string, extraArgs []string, binaryPath string) ([]TlsxResult, error) {
	if len(hosts) == 0 {
		return []TlsxResult{}, nil
	}

	binary := binaryOr(binaryPath, "tlsx")
	args := withFlags(extraArgs, "-silent", "-json", "-tls-version", "-cipher", "-cn", "-san", "-expired", "-self-signed")

	result, err := RunToolWithInput(ctx, hosts, binary, args...)
	if err != nil {
		return nil, fmt.Errorf("tlsx execution failed: %w", err)
	}

	return ParseTlsx(result.Stdout)
}

// ParseTlsx decodes tlsx JSONL output, skipping malformed lines.
func ParseTlsx(data []byte) ([]TlsxResult, error) {
	results := []TlsxResult{}
	err := scanJSONLines("tlsx", data, func(line []byte) error {
		var r TlsxResult
		if err := json.Unmarshal(line, &r); err != nil {
			return err
		}
		results = append(results, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
