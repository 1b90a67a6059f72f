package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
)

// nmap -oX layout, only the parts we read
type nmapRun struct {
	XMLName xml.Name   `xml:"nmaprun"`
	Hosts   []nmapHost `xml:"host"`
}

type nmapHost struct {
	Addresses []nmapAddress `xml:"address"`
	Hostnames []struct {
		Name string `xml:"name,attr"`
	} `xml:"hostnames>hostname"`
	Ports []nmapPort `xml:"ports>port"`
}

type nmapAddress struct {
	Addr     string `xml:"addr,attr"`
	AddrType string `xml:"addrtype,attr"`
}

type nmapPort struct {
	Protocol string `xml:"protocol,attr"`
	PortID   int    `xml:"portid,attr"`
	State    struct {
		State string `xml:"state,attr"`
	} `xml:"state"`
	Service struct {
		Name    string `xml:"name,attr"`
		Product string `xml:"product,attr"`
		Version string `xml:"version,attr"`
	} `xml:"service"`
}

// NmapResult is the service fingerprint for one port of one scanned host
type NmapResult struct {
	Host     string `json:"host"`
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	State    string `json:"state"`
	Service  string `json:"service"`
	Product  string `json:"product,omitempty"`
	Version  string `json:"version,omitempty"`
}

// RunNmap runs nmap against a single host with the configured arguments
// (service detection is expected in args, e.g. -sV) and parses its XML report.
func RunNmap(ctx context.Context, host string, args []string, binaryPath string) ([]NmapResult, error) {
	binary := binaryOr(binaryPath, "nmap")

	outputFile, err := os.CreateTemp("", "nmap-output-*.xml")
	if err != nil {
		return nil, fmt.Errorf("failed to create output temp file: %w", err)
	}
	outputFile.Close()
	defer os.Remove(outputFile.Name())

	fullArgs := append([]string{}, args...)
	fullArgs = append(fullArgs, "-oX", outputFile.Name(), host)

	if _, err := RunTool(ctx, binary, fullArgs...); err != nil {
		return nil, fmt.Errorf("nmap execution failed: %w", err)
	}

	data, err := os.ReadFile(outputFile.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to read nmap output: %w", err)
	}

	return ParseNmapXML(data)
}

// ParseNmapXML flattens an nmap XML report into one result per port.
// The IPv4 address is preferred when a host reports several.
func ParseNmapXML(data []byte) ([]NmapResult, error) {
	var run nmapRun
	if err := xml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse nmap XML: %w", err)
	}

	results := []NmapResult{}
	for _, h := range run.Hosts {
		var ip string
		for _, addr := range h.Addresses {
			if addr.AddrType == "ipv4" {
				ip = addr.Addr
				break
			}
		}
		if ip == "" && len(h.Addresses) > 0 {
			ip = h.Addresses[0].Addr
		}

		hostname := ip
		if len(h.Hostnames) > 0 && h.Hostnames[0].Name != "" {
			hostname = h.Hostnames[0].Name
		}

		for _, p := range h.Ports {
			results = append(results, NmapResult{
				Host:     hostname,
				IP:       ip,
				Port:     p.PortID,
				Protocol: p.Protocol,
				State:    p.State.State,
				Service:  p.Service.Name,
				Product:  p.Service.Product,
				Version:  p.Service.Version,
			})
		}
	}

	return results, nil
}
