// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pug drives PubChem PUG (Power User Gateway) XML export jobs: it
// turns an Entrez session handle into an asynchronous download request,
// polls the request status, and streams the prepared artifact.
package pug

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pdiddy/compound-fetch/internal/httputil"
	"github.com/pdiddy/compound-fetch/pkg/types"
)

// pugBase is the PUG XML endpoint. Declared as a var so tests can substitute
// an httptest server.
var pugBase = "https://pubchem.ncbi.nlm.nih.gov/pug/pug.cgi"

// NCBI FTP download URLs are fetched from the HTTPS mirror of the same path.
const (
	ncbiFTPPrefix   = "ftp://ftp.ncbi.nlm.nih.gov/"
	ncbiHTTPSPrefix = "https://ftp.ncbi.nlm.nih.gov/"
)

// Client talks to PUG over HTTP. It remembers the latest response for each
// job so the download URL and status message can be read after polling.
type Client struct {
	HTTP      *http.Client
	UserAgent string

	mu   sync.Mutex
	jobs map[types.JobHandle]*pugResponse
}

// New returns a Client using the given HTTP client.
func New(client *http.Client, cfg types.HTTPConfig) *Client {
	return &Client{
		HTTP:      client,
		UserAgent: cfg.UserAgent,
		jobs:      make(map[types.JobHandle]*pugResponse),
	}
}

type pctValue struct {
	Value string `xml:"value,attr"`
}

type downloadRequest struct {
	XMLName     xml.Name `xml:"PCT-Data"`
	DB          string   `xml:"PCT-Data_input>PCT-InputData>PCT-InputData_download>PCT-Download>PCT-Download_uids>PCT-QueryUids>PCT-QueryUids_entrez>PCT-Entrez>PCT-Entrez_db"`
	QueryKey    string   `xml:"PCT-Data_input>PCT-InputData>PCT-InputData_download>PCT-Download>PCT-Download_uids>PCT-QueryUids>PCT-QueryUids_entrez>PCT-Entrez>PCT-Entrez_query-key"`
	WebEnv      string   `xml:"PCT-Data_input>PCT-InputData>PCT-InputData_download>PCT-Download>PCT-Download_uids>PCT-QueryUids>PCT-QueryUids_entrez>PCT-Entrez>PCT-Entrez_webenv"`
	Format      pctValue `xml:"PCT-Data_input>PCT-InputData>PCT-InputData_download>PCT-Download>PCT-Download_format"`
	Compression pctValue `xml:"PCT-Data_input>PCT-InputData>PCT-InputData_download>PCT-Download>PCT-Download_compression"`
}

type statusRequest struct {
	XMLName xml.Name `xml:"PCT-Data"`
	ReqID   string   `xml:"PCT-Data_input>PCT-InputData>PCT-InputData_request>PCT-Request>PCT-Request_reqid"`
	Type    pctValue `xml:"PCT-Data_input>PCT-InputData>PCT-InputData_request>PCT-Request>PCT-Request_type"`
}

type pugResponse struct {
	XMLName xml.Name `xml:"PCT-Data"`
	Status  pctValue `xml:"PCT-Data_output>PCT-OutputData>PCT-OutputData_status>PCT-Status-Message>PCT-Status-Message_status>PCT-Status"`
	Message string   `xml:"PCT-Data_output>PCT-OutputData>PCT-OutputData_status>PCT-Status-Message>PCT-Status-Message_message"`
	ReqID   string   `xml:"PCT-Data_output>PCT-OutputData>PCT-OutputData_output>PCT-OutputData_output_waiting>PCT-Waiting>PCT-Waiting_reqid"`
	URL     string   `xml:"PCT-Data_output>PCT-OutputData>PCT-OutputData_output>PCT-OutputData_output_download-url>PCT-Download-URL>PCT-Download-URL_url"`
}

func parseStatus(v string) types.JobStatus {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "queued":
		return types.JobQueued
	case "running":
		return types.JobRunning
	case "success":
		return types.JobSuccess
	default:
		return types.JobFailed
	}
}

// SubmitExport asks PUG to prepare the result set behind h as a download.
// When the server answers without a request id (immediate success or an
// input error) the response is kept under a locally generated handle and
// reported by the first PollStatus call.
func (c *Client) SubmitExport(ctx context.Context, h types.SessionHandle, format types.ExportFormat, compression types.Compression) (types.JobHandle, error) {
	req := downloadRequest{
		DB:          h.Database,
		QueryKey:    h.QueryKey,
		WebEnv:      h.WebEnv,
		Format:      pctValue{Value: string(format)},
		Compression: pctValue{Value: string(compression)},
	}
	resp, err := c.post(ctx, req)
	if err != nil {
		return "", fmt.Errorf("PUG download request: %w", err)
	}

	job := types.JobHandle(strings.TrimSpace(resp.ReqID))
	if job == "" {
		job = types.JobHandle("local-" + uuid.NewString())
	}
	c.remember(job, resp)
	return job, nil
}

// PollStatus returns the current state of job.
func (c *Client) PollStatus(ctx context.Context, job types.JobHandle) (types.JobStatus, error) {
	if last := c.last(job); last != nil && strings.HasPrefix(string(job), "local-") {
		return parseStatus(last.Status.Value), nil
	}

	req := statusRequest{ReqID: string(job), Type: pctValue{Value: "status"}}
	resp, err := c.post(ctx, req)
	if err != nil {
		return types.JobFailed, fmt.Errorf("PUG status request for %s: %w", job, err)
	}
	c.remember(job, resp)
	return parseStatus(resp.Status.Value), nil
}

// DownloadLocation returns the artifact URL reported by the latest poll.
// A finished job is forgotten once its URL has been read.
func (c *Client) DownloadLocation(ctx context.Context, job types.JobHandle) (string, error) {
	last := c.last(job)
	if last == nil || strings.TrimSpace(last.URL) == "" {
		return "", fmt.Errorf("no download URL for job %s", job)
	}
	c.forgetFinished(job, last)
	return strings.TrimSpace(last.URL), nil
}

// ErrorMessage returns the server's status message for job, falling back to
// the raw status value. A finished job is forgotten once its message has
// been read.
func (c *Client) ErrorMessage(ctx context.Context, job types.JobHandle) (string, error) {
	last := c.last(job)
	if last == nil {
		return "", fmt.Errorf("unknown job %s", job)
	}
	c.forgetFinished(job, last)
	if msg := strings.TrimSpace(last.Message); msg != "" {
		return msg, nil
	}
	return last.Status.Value, nil
}

// Fetch streams the artifact at rawURL into w and returns the byte count.
// NCBI FTP URLs are fetched from their HTTPS mirror; other schemes besides
// http and https are rejected. The client's total timeout does not apply.
func (c *Client) Fetch(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	if strings.HasPrefix(rawURL, ncbiFTPPrefix) {
		rawURL = ncbiHTTPSPrefix + strings.TrimPrefix(rawURL, ncbiFTPPrefix)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("parsing download URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return 0, fmt.Errorf("unsupported download scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	// The body read is bounded by ctx only; the transport still limits the
	// wait for response headers.
	dl := *c.HTTP
	dl.Timeout = 0

	resp, err := httputil.DoWithRetry(ctx, &dl, req, 0)
	if err != nil {
		return 0, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d from %s", resp.StatusCode, u)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("reading artifact: %w", err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return n, fmt.Errorf("short artifact: got %d of %d bytes", n, resp.ContentLength)
	}
	return n, nil
}

func (c *Client) post(ctx context.Context, body any) (*pugResponse, error) {
	payload, err := xml.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	payload = append([]byte(xml.Header), payload...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pugBase, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, 0)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("PUG returned HTTP %d", resp.StatusCode)
	}

	var out pugResponse
	if err := xml.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("parsing PUG response: %w", err)
	}
	return &out, nil
}

func (c *Client) remember(job types.JobHandle, resp *pugResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.jobs == nil {
		c.jobs = make(map[types.JobHandle]*pugResponse)
	}
	c.jobs[job] = resp
}

func (c *Client) forgetFinished(job types.JobHandle, resp *pugResponse) {
	if parseStatus(resp.Status.Value).Pending() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.jobs, job)
}

func (c *Client) last(job types.JobHandle) *pugResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jobs[job]
}
