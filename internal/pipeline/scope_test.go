package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeAllowsHost(t *testing.T) {
	scope := &Scope{
		AllowedDomains: []string{"example.com", "*.example.com"},
		AllowedCIDRs:   []string{"203.0.113.0/24"},
	}

	tests := []struct {
		host string
		want bool
	}{
		{"example.com", true},
		{"EXAMPLE.com.", true},
		{"shop.example.com", true},
		{"a.b.example.com", true},
		{"badexample.com", false},
		{"example.org", false},
		{"203.0.113.10", true},
		{"198.51.100.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, scope.AllowsHost(tt.host))
		})
	}
}

func TestWildcardExcludesApex(t *testing.T) {
	scope := &Scope{AllowedDomains: []string{"*.example.com"}}
	assert.False(t, scope.AllowsHost("example.com"))
	assert.Error(t, scope.ValidateTarget("example.com"))
	assert.NoError(t, scope.ValidateTarget("api.example.com"))
}

func TestEmptyScopeAllowsEverything(t *testing.T) {
	scope := &Scope{}
	assert.NoError(t, scope.ValidateTarget("anything.test"))
	assert.NoError(t, scope.ValidateIP("10.1.2.3"))
}

func TestValidateIP(t *testing.T) {
	scope := &Scope{AllowedCIDRs: []string{"10.0.0.0/8", "not-a-cidr"}}
	assert.NoError(t, scope.ValidateIP("10.20.30.40"))
	assert.NoError(t, scope.ValidateIP("::ffff:10.0.0.1"))
	assert.Error(t, scope.ValidateIP("192.168.1.1"))
	assert.Error(t, scope.ValidateIP("nope"))
}

func TestFilterHosts(t *testing.T) {
	scope := &Scope{AllowedDomains: []string{"*.example.com"}}
	kept, dropped := scope.FilterHosts([]string{"a.example.com", "cdn.other.net", "b.example.com"})
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, kept)
	assert.Equal(t, []string{"cdn.other.net"}, dropped)
}
