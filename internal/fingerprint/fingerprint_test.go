package fingerprint

import (
	"testing"

	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyService(t *testing.T) {
	tests := []struct {
		tech string
		url  string
		want models.ServiceType
	}{
		{"Roundcube", "https://webmail.example.com", models.ServiceMail},
		{"Postfix-SMTP", "smtp.example.com", models.ServiceMail},
		{"ProFTPD", "ftp.example.com", models.ServiceFTP},
		{"MySQL", "db.example.com", models.ServiceDatabase},
		{"PostgreSQL", "db.example.com", models.ServiceDatabase},
		{"WordPress", "https://blog.example.com/login", models.ServiceCMS},
		{"Drupal-CMS", "https://example.com", models.ServiceCMS},
		{"nginx", "https://example.com/Login", models.ServiceAccessPortal},
		{"nginx", "https://example.com", models.ServiceOther},
		{"mail-ftp", "x", models.ServiceMail},
	}
	for _, tt := range tests {
		t.Run(tt.tech+"_"+tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyService(tt.tech, tt.url))
		})
	}
}

func TestDetectOS(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Microsoft-HTTPAPI/2.0 (Windows)", models.OSWindows},
		{"Apache/2.4.41 (Ubuntu)", models.OSLinux},
		{"Apache/2.4.6 (Red Hat Enterprise Linux)", models.OSLinux},
		{"nginx/1.18.0", models.OSLinuxUnix},
		{"nginx/1.18.0 (Ubuntu)", models.OSLinux},
		{"Microsoft-IIS/10.0", models.OSWindowsIIS},
		{"cloudflare", models.OSProxyCDN},
		{"LiteSpeed", models.OSUnknown},
		{"", models.OSUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectOS(tt.header))
		})
	}
}

func TestBestVersion(t *testing.T) {
	assert.Equal(t, "2.4.58", BestVersion([]string{"2.4.9", "2.4.58", "2.4.41"}))
	assert.Equal(t, "7.4.3", BestVersion([]string{"", "7.4.3"}))
	assert.Equal(t, "beta", BestVersion([]string{"beta", "gamma"}))
	assert.Equal(t, "", BestVersion(nil))
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "shop.example.com", HostOf("https://Shop.Example.com:8443/path"))
	assert.Equal(t, "api.example.com", HostOf("api.example.com"))
	assert.Equal(t, "", HostOf(""))
}

func TestBuildEndpoints(t *testing.T) {
	results := []tools.WhatwebResult{
		{
			Target:     "https://shop.example.com",
			HTTPStatus: 200,
			Plugins: []tools.WhatwebPlugin{
				{Name: "nginx", Versions: []string{"1.18.0"}},
				{Name: "HTTPServer", Strings: []string{"nginx/1.18.0"}},
				{Name: "Title", Strings: []string{"Shop"}},
			},
		},
		{
			Target:  "http://blog.example.com",
			Plugins: []tools.WhatwebPlugin{{Name: "HTTPServer", Strings: []string{"Apache (Ubuntu)"}}},
		},
		{Target: "https://shop.example.com"},
	}
	probes := []tools.HttpxResult{
		{Input: "shop.example.com", URL: "https://shop.example.com", WebServer: "Microsoft-IIS/10.0"},
	}

	endpoints := BuildEndpoints(results, probes)
	require.Len(t, endpoints, 2)

	shop := endpoints[0]
	assert.Equal(t, "shop.example.com", shop.Host)
	assert.Equal(t, "Shop", shop.Title)
	assert.Equal(t, "Microsoft-IIS/10.0", shop.ServerHeader)
	assert.Equal(t, models.OSWindowsIIS, shop.OperatingSystem)
	require.Len(t, shop.Technologies, 3)
	assert.Equal(t, "nginx", shop.Technologies[0].Name)
	assert.Equal(t, "1.18.0", shop.Technologies[0].Version)
	assert.Equal(t, "whatweb", shop.Technologies[0].Source)

	blog := endpoints[1]
	assert.Equal(t, "Apache (Ubuntu)", blog.ServerHeader)
	assert.Equal(t, models.OSLinux, blog.OperatingSystem)
}
