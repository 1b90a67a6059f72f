// Package fingerprint turns whatweb (and optionally httpx) output into
// endpoints with their technologies, service category and OS guess.
package fingerprint

import (
	"strings"

	"github.com/hakim/secureval/internal/models"
	"github.com/hashicorp/go-version"
)

var serviceRules = []struct {
	keywords []string
	service  models.ServiceType
}{
	{[]string{"smtp", "mail", "roundcube"}, models.ServiceMail},
	{[]string{"ftp", "sftp"}, models.ServiceFTP},
	{[]string{"mysql", "postgres", "mongodb"}, models.ServiceDatabase},
	{[]string{"wordpress", "joomla", "cms"}, models.ServiceCMS},
}

// ClassifyService maps a technology name to a service category. Rules are
// checked in order; a URL containing "login" marks an access portal when no
// technology rule matched.
func ClassifyService(tech, url string) models.ServiceType {
	t := strings.ToLower(tech)
	for _, rule := range serviceRules {
		for _, kw := range rule.keywords {
			if strings.Contains(t, kw) {
				return rule.service
			}
		}
	}
	if strings.Contains(strings.ToLower(url), "login") {
		return models.ServiceAccessPortal
	}
	return models.ServiceOther
}

// DetectOS guesses the operating system from an HTTP Server header value.
func DetectOS(serverHeader string) string {
	h := strings.ToLower(serverHeader)
	switch {
	case h == "":
		return models.OSUnknown
	case strings.Contains(h, "windows"):
		return models.OSWindows
	case strings.Contains(h, "ubuntu"), strings.Contains(h, "linux"):
		return models.OSLinux
	case strings.Contains(h, "nginx"):
		return models.OSLinuxUnix
	case strings.Contains(h, "iis"):
		return models.OSWindowsIIS
	case strings.Contains(h, "cloudflare"):
		return models.OSProxyCDN
	}
	return models.OSUnknown
}

// BestVersion picks the highest semantic version among the reported ones.
// When none parse, the first non-empty string is returned as is.
func BestVersion(versions []string) string {
	var best *version.Version
	bestRaw := ""
	fallback := ""

	for _, raw := range versions {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if fallback == "" {
			fallback = raw
		}
		v, err := version.NewVersion(raw)
		if err != nil {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestRaw = raw
		}
	}

	if best != nil {
		return bestRaw
	}
	return fallback
}
