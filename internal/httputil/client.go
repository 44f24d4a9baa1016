// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/compound-fetch/pkg/types"
)

// NewClient builds an HTTP client whose transport carries the proxy settings
// in cfg. cfg.Timeout bounds each whole request and, on the transport, the
// wait for response headers. Nothing is read from or written to process-wide state except the
// standard proxy environment variables when cfg.Proxy.URL is empty.
func NewClient(cfg types.HTTPConfig) (*http.Client, error) {
	proxy, err := ProxyFunc(cfg.Proxy)
	if err != nil {
		return nil, err
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = proxy
	tr.ResponseHeaderTimeout = cfg.Timeout

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: tr,
	}, nil
}

// ProxyFunc returns the transport proxy selector for cfg.
func ProxyFunc(cfg types.ProxyConfig) (func(*http.Request) (*url.URL, error), error) {
	if cfg.URL == "" {
		return http.ProxyFromEnvironment, nil
	}

	proxyURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy URL %q: %w", cfg.URL, err)
	}
	if proxyURL.Scheme == "" || proxyURL.Host == "" {
		return nil, fmt.Errorf("proxy URL %q needs scheme and host", cfg.URL)
	}

	bypass := make([]string, 0, len(cfg.NoProxy))
	for _, h := range cfg.NoProxy {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			bypass = append(bypass, h)
		}
	}

	return func(req *http.Request) (*url.URL, error) {
		if bypassed(req.URL.Hostname(), bypass) {
			return nil, nil
		}
		return proxyURL, nil
	}, nil
}

// bypassed matches host against entries that are exact hosts or ".suffix"
// domains. A bare domain entry also matches its subdomains.
func bypassed(host string, entries []string) bool {
	host = strings.ToLower(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	for _, e := range entries {
		if e == "*" || host == e || host == strings.TrimPrefix(e, ".") {
			return true
		}
		suffix := e
		if !strings.HasPrefix(suffix, ".") {
			suffix = "." + suffix
		}
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}
