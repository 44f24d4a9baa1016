// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/compound-fetch/pkg/types"
)

func TestProxyFunc(t *testing.T) {
	proxy, err := ProxyFunc(types.ProxyConfig{
		URL:     "http://proxy.example.org:3128",
		NoProxy: []string{"localhost", ".internal.example", " nih.gov "},
	})
	require.NoError(t, err)

	tests := []struct {
		url       string
		wantProxy bool
	}{
		{"https://pubchem.ncbi.nlm.nih.gov/pug/pug.cgi", false},
		{"https://nih.gov/", false},
		{"http://localhost:8080/x", false},
		{"http://db.internal.example/x", false},
		{"https://eutils.example.com/esearch.fcgi", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, tt.url, nil)
			require.NoError(t, err)
			got, err := proxy(req)
			require.NoError(t, err)
			if tt.wantProxy {
				require.NotNil(t, got)
				assert.Equal(t, "proxy.example.org:3128", got.Host)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestProxyFuncRejectsBadURL(t *testing.T) {
	_, err := ProxyFunc(types.ProxyConfig{URL: "proxy-without-scheme"})
	assert.Error(t, err)
}

func TestNewClientRoutesThroughProxy(t *testing.T) {
	var sawAbsolute bool
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Proxied requests carry the absolute target URL.
		sawAbsolute = r.URL.IsAbs() && r.URL.Host == "artifact.example"
		w.WriteHeader(http.StatusOK)
	}))
	defer proxy.Close()

	client, err := NewClient(types.HTTPConfig{
		Timeout: 5 * time.Second,
		Proxy:   types.ProxyConfig{URL: proxy.URL},
	})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, client.Timeout)

	resp, err := client.Get("http://artifact.example/pubchem/out.sdf")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, sawAbsolute)
}

func TestNewClientBoundsHeaderWait(t *testing.T) {
	client, err := NewClient(types.HTTPConfig{Timeout: 3 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, client.Timeout)

	tr, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, tr.ResponseHeaderTimeout)
}
