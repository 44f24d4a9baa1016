// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"errors"
	"fmt"

	"github.com/pdiddy/compound-fetch/pkg/types"
)

var (
	// ErrSearchFailed means the search returned no usable session handle.
	// It is never retried.
	ErrSearchFailed = errors.New("search failed")

	// ErrRemoteJobFailed means the export job ended in a non-success state.
	ErrRemoteJobFailed = errors.New("remote export job failed")

	// ErrDownloadFailed means the prepared artifact could not be fetched.
	// The network path is retried up to FetchConfig.MaxAttempts times.
	ErrDownloadFailed = errors.New("download failed")

	// ErrMalformedRecord means a record lacked the identifier property.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrPollTimeout means the export job did not finish within
	// PollConfig.Timeout.
	ErrPollTimeout = errors.New("export job poll timed out")

	// ErrEmptyQuery means an identifier search was given no identifiers.
	ErrEmptyQuery = errors.New("empty query")

	// ErrInvalidRange means a mass range was negative or inverted.
	ErrInvalidRange = errors.New("invalid mass range")
)

// RemoteJobError carries the server's status message for a failed job.
type RemoteJobError struct {
	Job     types.JobHandle
	Status  types.JobStatus
	Message string
}

func (e *RemoteJobError) Error() string {
	return fmt.Sprintf("remote export job %s %s: %s", e.Job, e.Status, e.Message)
}

// Is makes errors.Is(err, ErrRemoteJobFailed) hold.
func (e *RemoteJobError) Is(target error) bool {
	return target == ErrRemoteJobFailed
}

// MalformedRecordError identifies a record without the identifier property.
type MalformedRecordError struct {
	// Index is the zero-based position of the record in its source.
	Index    int
	Title    string
	Property string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("record %d (%q) has no %s", e.Index, e.Title, e.Property)
}

// Is makes errors.Is(err, ErrMalformedRecord) hold.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}
