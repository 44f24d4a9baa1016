// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the compound-fetch
// workflow: remote session and job handles, job status, and configuration.
package types

import "time"

// SessionHandle references a saved search result set on the Entrez server.
// It is passed through to the retrieval service unmodified.
type SessionHandle struct {
	// Database is the Entrez database the search ran against.
	Database string `json:"database" yaml:"database"`

	// QueryKey identifies the result set within the web environment.
	QueryKey string `json:"query_key" yaml:"query_key"`

	// WebEnv is the Entrez history server environment token.
	WebEnv string `json:"webenv" yaml:"webenv"`

	// Count is the number of hits the search reported.
	Count int `json:"count" yaml:"count"`
}

// Valid reports whether the handle carries both correlation tokens.
func (h SessionHandle) Valid() bool {
	return h.QueryKey != "" && h.WebEnv != ""
}

// JobHandle identifies an asynchronous export task on the retrieval service.
type JobHandle string

// JobStatus is the state of an export task.
type JobStatus int

const (
	JobFailed JobStatus = iota
	JobQueued
	JobRunning
	JobSuccess
)

func (s JobStatus) String() string {
	switch s {
	case JobQueued:
		return "queued"
	case JobRunning:
		return "running"
	case JobSuccess:
		return "success"
	default:
		return "failed"
	}
}

// Pending reports whether the job has not reached a terminal state.
func (s JobStatus) Pending() bool {
	return s == JobQueued || s == JobRunning
}

// ExportFormat selects the file format of an export job.
type ExportFormat string

const (
	FormatSDF  ExportFormat = "sdf"
	FormatXML  ExportFormat = "xml"
	FormatASNT ExportFormat = "asnt"
)

// Compression selects the compression of an export artifact.
type Compression string

const (
	CompressNone  Compression = "none"
	CompressGzip  Compression = "gzip"
	CompressBzip2 Compression = "bzip2"
)

// Run describes one workflow invocation recorded in the compound index.
type Run struct {
	// ID is a UUID assigned by the index store.
	ID string `json:"id" yaml:"id"`

	// Mode is "mass", "mass-cached", or "ids".
	Mode string `json:"mode" yaml:"mode"`

	// Query is the Entrez search expression (or cache directory for cache hits).
	Query string `json:"query" yaml:"query"`

	// Source is "network" or "cache".
	Source string `json:"source" yaml:"source"`

	// Count is the number of compounds indexed.
	Count int `json:"count" yaml:"count"`

	// Skipped is the number of records dropped for lacking an identifier.
	Skipped int `json:"skipped" yaml:"skipped"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
}

// Compound is one CID→formula entry in the compound index.
type Compound struct {
	CID       string    `json:"cid" yaml:"cid"`
	Formula   string    `json:"formula" yaml:"formula"`
	RunID     string    `json:"run_id" yaml:"run_id"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
