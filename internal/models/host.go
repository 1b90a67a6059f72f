package models

import "time"

// Subdomain represents a discovered subdomain
type Subdomain struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
	Source string `json:"source"`
}

// Technology is a single product fingerprinted on an endpoint.
type Technology struct {
	Name     string   `json:"name"`
	Versions []string `json:"versions,omitempty"`
	Version  string   `json:"version,omitempty"`
	Source   string   `json:"source,omitempty"`
}

// Port represents an open port with service information
type Port struct {
	Number   int    `json:"number"`
	Protocol string `json:"protocol"`
	Service  string `json:"service,omitempty"`
	Product  string `json:"product,omitempty"`
	Version  string `json:"version,omitempty"`
	State    string `json:"state"`
}

// TLSInfo summarises the certificate and handshake seen on an endpoint.
type TLSInfo struct {
	Port       string    `json:"port"`
	Version    string    `json:"version,omitempty"`
	Cipher     string    `json:"cipher,omitempty"`
	SubjectCN  string    `json:"subject_cn,omitempty"`
	IssuerCN   string    `json:"issuer_cn,omitempty"`
	NotAfter   time.Time `json:"not_after,omitempty"`
	Expired    bool      `json:"expired"`
	SelfSigned bool      `json:"self_signed"`
}

// Endpoint is a web-reachable target together with everything fingerprinted on it.
// Technologies keep the order the scanner reported them in.
type Endpoint struct {
	URL             string       `json:"url"`
	Host            string       `json:"host"`
	StatusCode      int          `json:"status_code,omitempty"`
	Title           string       `json:"title,omitempty"`
	ServerHeader    string       `json:"server_header,omitempty"`
	OperatingSystem string       `json:"operating_system,omitempty"`
	Technologies    []Technology `json:"technologies"`
	Ports           []Port       `json:"ports,omitempty"`
	TLS             *TLSInfo     `json:"tls,omitempty"`
}
