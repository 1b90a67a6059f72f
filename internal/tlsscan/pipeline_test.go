package tlsscan

import (
	"context"
	"errors"
	"testing"

	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTLSScan(t *testing.T) {
	fake := func(_ context.Context, hosts []string, _ []string, _ string) ([]tools.TlsxResult, error) {
		assert.Len(t, hosts, 1)
		switch hosts[0] {
		case "shop.example.com":
			return []tools.TlsxResult{{Host: "shop.example.com", Port: "443", TLSVersion: "tls13", Expired: true}}, nil
		case "self.example.com":
			return []tools.TlsxResult{{Host: "self.example.com", Port: "443", SelfSigned: true}}, nil
		case "err.example.com":
			return nil, errors.New("boom")
		}
		return []tools.TlsxResult{}, nil
	}

	eps := []models.Endpoint{
		{Host: "shop.example.com"},
		{Host: "self.example.com"},
		{Host: "plain.example.com"},
		{Host: "err.example.com"},
		{Host: "shop.example.com"},
	}

	result, err := runTLSScan(context.Background(), "example.com", eps, TLSScanConfig{TlsxMaxParallel: 3}, fake)
	require.NoError(t, err)
	assert.Len(t, result.Hosts, 2)
	assert.Equal(t, 1, result.ExpiredCount)
	assert.Equal(t, 1, result.SelfSigned)

	result.Apply(eps)
	require.NotNil(t, eps[0].TLS)
	assert.Equal(t, "tls13", eps[0].TLS.Version)
	assert.Same(t, eps[0].TLS, eps[4].TLS)
	assert.True(t, eps[1].TLS.SelfSigned)
	assert.Nil(t, eps[2].TLS)
	assert.Nil(t, eps[3].TLS)
}
