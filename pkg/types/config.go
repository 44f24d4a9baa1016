// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"os"
	"time"
)

// Defaults applied by FetchConfig.WithDefaults.
const (
	DefaultDatabase         = "pccompound"
	DefaultIDProperty       = "PUBCHEM_COMPOUND_CID"
	DefaultCreateDateCutoff = "2006/02/06"
	DefaultUserAgent        = "compound-fetch/0.1"
	DefaultHTTPTimeout      = 5 * time.Minute
	DefaultPollInterval     = 10 * time.Second
	DefaultPollTimeout      = 30 * time.Minute
	DefaultMaxAttempts      = 2
)

// ProxyConfig routes outbound requests through an HTTP proxy. It replaces
// process-wide proxy properties with per-client transport settings.
type ProxyConfig struct {
	// URL is the proxy address (e.g. "http://proxy.example.org:3128").
	// Empty means honor the standard proxy environment variables.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// NoProxy lists hosts that bypass the proxy.
	NoProxy []string `json:"no_proxy,omitempty" yaml:"no_proxy,omitempty"`
}

// HTTPConfig holds shared HTTP settings used by clients that make network requests.
type HTTPConfig struct {
	// Timeout bounds each API request and the wait for response headers.
	// Artifact bodies are limited by the caller's context only.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "compound-fetch/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// Proxy configures the transport proxy.
	Proxy ProxyConfig `json:"proxy" yaml:"proxy"`
}

// PollConfig bounds the export-status poll loop.
type PollConfig struct {
	// Interval is the wait before the first re-poll (default 10s).
	Interval time.Duration `json:"interval" yaml:"interval"`

	// Multiplier grows the interval after each poll. Values <= 1 keep it fixed.
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`

	// MaxInterval caps the grown interval. Zero means no cap.
	MaxInterval time.Duration `json:"max_interval" yaml:"max_interval"`

	// Timeout bounds the whole poll loop (default 30m). Zero means unbounded.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// FetchConfig holds settings for the batch retrieval workflow.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// Database is the Entrez database searched (default "pccompound").
	Database string `json:"database" yaml:"database"`

	// IDProperty is the SDF data item holding the compound identifier
	// (default "PUBCHEM_COMPOUND_CID").
	IDProperty string `json:"id_property" yaml:"id_property"`

	// CreateDateCutoff limits mass-range searches to compounds created on or
	// before this Entrez date (YYYY/MM/DD). Empty disables the filter.
	CreateDateCutoff string `json:"create_date_cutoff" yaml:"create_date_cutoff"`

	// Poll bounds the wait for the export job.
	Poll PollConfig `json:"poll" yaml:"poll"`

	// MaxAttempts is the number of times the network path runs when the
	// artifact download fails (default 2: one retry).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// TempDir receives the downloaded artifact (default os.TempDir()).
	TempDir string `json:"temp_dir" yaml:"temp_dir"`

	// StrictRecords fails the whole call on a record without an identifier
	// instead of skipping it.
	StrictRecords bool `json:"strict_records" yaml:"strict_records"`

	// NCBIAPIKey raises the E-utilities rate limit when set.
	NCBIAPIKey string `json:"ncbi_api_key,omitempty" yaml:"ncbi_api_key,omitempty"`

	// NCBIEmail is the contact address sent with E-utilities requests.
	NCBIEmail string `json:"ncbi_email,omitempty" yaml:"ncbi_email,omitempty"`
}

// DefaultFetchConfig returns a FetchConfig with every default filled in,
// including the create-date cutoff and poll timeout.
func DefaultFetchConfig() FetchConfig {
	c := FetchConfig{CreateDateCutoff: DefaultCreateDateCutoff}
	c.Poll.Timeout = DefaultPollTimeout
	return c.WithDefaults()
}

// WithDefaults returns a copy of c with zero-valued fields replaced by defaults.
// CreateDateCutoff and Poll.Timeout are left alone because empty and zero
// are meaningful settings (no date filter, unbounded polling).
func (c FetchConfig) WithDefaults() FetchConfig {
	if c.Timeout == 0 {
		c.Timeout = DefaultHTTPTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.IDProperty == "" {
		c.IDProperty = DefaultIDProperty
	}
	if c.Poll.Interval <= 0 {
		c.Poll.Interval = DefaultPollInterval
	}
	if c.Poll.Multiplier < 1 {
		c.Poll.Multiplier = 1
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}
	return c
}

// IndexConfig holds settings for the local compound index.
type IndexConfig struct {
	// Dir holds the SQLite database and YAML export.
	Dir string `json:"dir" yaml:"dir"`
}
