// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package esearch runs NCBI Entrez ESearch queries with history enabled and
// returns the server-side session handle for the matched result set.
package esearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/compound-fetch/internal/httputil"
	"github.com/pdiddy/compound-fetch/pkg/types"
)

// esearchBase is the ESearch endpoint. Declared as a var so tests can
// substitute an httptest server.
var esearchBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"

const toolName = "compound-fetch"

// Client queries ESearch over HTTP.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	// APIKey raises the NCBI rate limit from 3 to 10 requests per second.
	APIKey string
	// Email is sent with every request as NCBI asks of registered tools.
	Email string
}

// New returns a Client configured from cfg.
func New(client *http.Client, cfg types.FetchConfig) *Client {
	return &Client{
		HTTP:      client,
		UserAgent: cfg.UserAgent,
		APIKey:    cfg.NCBIAPIKey,
		Email:     cfg.NCBIEmail,
	}
}

type esearchResponse struct {
	Result esearchResult `json:"esearchresult"`
}

type esearchResult struct {
	Count    string `json:"count"`
	QueryKey string `json:"querykey"`
	WebEnv   string `json:"webenv"`
	Error    string `json:"ERROR"`
}

// Search submits term against db, asking the server to store the result set
// in its history and return no identifiers. The returned handle may lack a
// query key or web environment; callers decide whether that is fatal.
func (c *Client) Search(ctx context.Context, db, term string) (types.SessionHandle, error) {
	form := url.Values{
		"db":         {db},
		"term":       {term},
		"usehistory": {"y"},
		"retmax":     {"0"},
		"retmode":    {"json"},
		"tool":       {toolName},
	}
	if c.APIKey != "" {
		form.Set("api_key", c.APIKey)
	}
	if c.Email != "" {
		form.Set("email", c.Email)
	}

	// POST keeps long identifier disjunctions out of the URL.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, esearchBase, strings.NewReader(form.Encode()))
	if err != nil {
		return types.SessionHandle{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, 0)
	if err != nil {
		return types.SessionHandle{}, fmt.Errorf("ESearch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.SessionHandle{}, fmt.Errorf("ESearch returned HTTP %d", resp.StatusCode)
	}

	var er esearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return types.SessionHandle{}, fmt.Errorf("parsing ESearch response: %w", err)
	}
	if er.Result.Error != "" {
		return types.SessionHandle{}, fmt.Errorf("ESearch error: %s", er.Result.Error)
	}

	count := 0
	if er.Result.Count != "" {
		n, err := strconv.Atoi(er.Result.Count)
		if err != nil {
			return types.SessionHandle{}, fmt.Errorf("parsing ESearch count %q: %w", er.Result.Count, err)
		}
		count = n
	}

	return types.SessionHandle{
		Database: db,
		QueryKey: er.Result.QueryKey,
		WebEnv:   er.Result.WebEnv,
		Count:    count,
	}, nil
}
