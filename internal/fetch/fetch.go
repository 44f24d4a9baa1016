// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves compound structure records from PubChem by exact
// mass range or by CID list and builds a CID to molecular formula index.
//
// Every mode runs the same network path: search with history, submit an SDF
// export job, poll it until it finishes, download the artifact, and parse
// it. The cached mass-range mode short-circuits to a populated cache
// directory and otherwise writes one file per record into it.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dustin/go-humanize"

	"github.com/pdiddy/compound-fetch/internal/cache"
	"github.com/pdiddy/compound-fetch/internal/sdf"
	"github.com/pdiddy/compound-fetch/pkg/types"
)

// Searcher runs a history-enabled search and returns its session handle.
type Searcher interface {
	Search(ctx context.Context, db, term string) (types.SessionHandle, error)
}

// Retriever prepares and serves export artifacts for a session handle.
type Retriever interface {
	SubmitExport(ctx context.Context, h types.SessionHandle, format types.ExportFormat, compression types.Compression) (types.JobHandle, error)
	PollStatus(ctx context.Context, job types.JobHandle) (types.JobStatus, error)
	DownloadLocation(ctx context.Context, job types.JobHandle) (string, error)
	ErrorMessage(ctx context.Context, job types.JobHandle) (string, error)
	Fetch(ctx context.Context, url string, w io.Writer) (int64, error)
}

// Index maps compound identifiers to molecular formulas.
type Index map[string]string

// Records maps compound identifiers to their structure records.
type Records map[string]*sdf.Record

// Source tells where a result came from.
type Source string

const (
	SourceNetwork Source = "network"
	SourceCache   Source = "cache"
)

// Result is the outcome of a mass-range search.
type Result struct {
	// Query is the Entrez term sent, or empty for cache hits.
	Query string

	Index Index

	// Skipped counts records dropped for lacking the identifier property.
	Skipped int

	Source Source
}

// Fetcher runs retrieval workflows. It holds no per-call state; calls that
// write the same cache directory are serialized by the cache lock.
type Fetcher struct {
	search   Searcher
	retrieve Retriever
	cfg      types.FetchConfig
	w        io.Writer
}

// New returns a Fetcher. Zero-valued fields of cfg take their defaults;
// progress lines go to w (nil discards them).
func New(s Searcher, r Retriever, cfg types.FetchConfig, w io.Writer) *Fetcher {
	if w == nil {
		w = io.Discard
	}
	return &Fetcher{search: s, retrieve: r, cfg: cfg.WithDefaults(), w: w}
}

// SearchByMassRange returns the formula index of every compound whose exact
// mass lies in [lo, hi]. It always queries the network.
func (f *Fetcher) SearchByMassRange(ctx context.Context, lo, hi float64) (Result, error) {
	query, err := MassRangeQuery(lo, hi, f.cfg.CreateDateCutoff)
	if err != nil {
		return Result{}, err
	}

	recs, err := f.retrieveRecords(ctx, query)
	if err != nil {
		return Result{}, err
	}

	res := Result{Query: query, Index: make(Index), Source: SourceNetwork}
	res.Skipped, err = f.fold(recs, func(id string, rec *sdf.Record) error {
		res.Index[id] = rec.Formula()
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	f.summarize(res)
	return res, nil
}

// SearchByMassRangeCached behaves like SearchByMassRange but consults dir
// first. A directory holding at least one entry is read instead of the
// network; otherwise every retrieved record is also written to dir as a
// file named by its identifier. An empty dir disables caching entirely.
func (f *Fetcher) SearchByMassRangeCached(ctx context.Context, lo, hi float64, dir string) (Result, error) {
	if dir == "" {
		return f.SearchByMassRange(ctx, lo, hi)
	}

	query, err := MassRangeQuery(lo, hi, f.cfg.CreateDateCutoff)
	if err != nil {
		return Result{}, err
	}

	populated, err := cache.Populated(dir)
	if err != nil {
		return Result{}, err
	}
	if populated {
		return f.fromCache(dir)
	}

	cw, err := cache.Begin(ctx, dir)
	if err != nil {
		return Result{}, err
	}
	defer cw.Abort()

	// Another writer may have filled the directory while we waited for the lock.
	if populated, err = cache.Populated(dir); err != nil {
		return Result{}, err
	} else if populated {
		cw.Abort()
		return f.fromCache(dir)
	}

	recs, err := f.retrieveRecords(ctx, query)
	if err != nil {
		return Result{}, err
	}

	res := Result{Query: query, Index: make(Index), Source: SourceNetwork}
	res.Skipped, err = f.fold(recs, func(id string, rec *sdf.Record) error {
		if err := cw.Put(id, rec); err != nil {
			return err
		}
		res.Index[id] = rec.Formula()
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if err := cw.Commit(); err != nil {
		return Result{}, err
	}
	fmt.Fprintf(f.w, "cached %d record(s) in %s\n", cw.Written(), dir)
	f.summarize(res)
	return res, nil
}

// SearchByIdentifiers returns the structure record of every listed compound
// found on the server. It always queries the network.
func (f *Fetcher) SearchByIdentifiers(ctx context.Context, ids []string) (Records, error) {
	query, err := IdentifierQuery(ids)
	if err != nil {
		return nil, err
	}

	recs, err := f.retrieveRecords(ctx, query)
	if err != nil {
		return nil, err
	}

	hits := make(Records, len(recs))
	skipped, err := f.fold(recs, func(id string, rec *sdf.Record) error {
		hits[id] = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(f.w, "found %d of %d requested compound(s)", len(hits), len(ids))
	if skipped > 0 {
		fmt.Fprintf(f.w, ", skipped %d record(s) without %s", skipped, f.cfg.IDProperty)
	}
	fmt.Fprintln(f.w)
	return hits, nil
}

func (f *Fetcher) fromCache(dir string) (Result, error) {
	fmt.Fprintf(f.w, "reading cached records from %s\n", dir)
	recs, bad, err := cache.ReadAll(dir, f.w)
	if err != nil {
		return Result{}, err
	}
	if bad > 0 {
		fmt.Fprintf(f.w, "  warning: %d cached file(s) could not be parsed\n", bad)
	}

	res := Result{Index: make(Index), Source: SourceCache}
	res.Skipped, err = f.fold(recs, func(id string, rec *sdf.Record) error {
		res.Index[id] = rec.Formula()
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	f.summarize(res)
	return res, nil
}

func (f *Fetcher) summarize(res Result) {
	fmt.Fprintf(f.w, "indexed %d compound(s) from %s", len(res.Index), res.Source)
	if res.Skipped > 0 {
		fmt.Fprintf(f.w, ", skipped %d record(s) without %s", res.Skipped, f.cfg.IDProperty)
	}
	fmt.Fprintln(f.w)
}

// fold hands each record with an identifier to add. Records without one are
// skipped and counted, or fail the call when StrictRecords is set.
func (f *Fetcher) fold(recs []*sdf.Record, add func(id string, rec *sdf.Record) error) (skipped int, err error) {
	for i, rec := range recs {
		id, ok := rec.Property(f.cfg.IDProperty)
		if !ok {
			merr := &MalformedRecordError{Index: i, Title: rec.Title, Property: f.cfg.IDProperty}
			if f.cfg.StrictRecords {
				return skipped, merr
			}
			fmt.Fprintf(f.w, "  warning: %v\n", merr)
			skipped++
			continue
		}
		if err := add(id, rec); err != nil {
			return skipped, err
		}
	}
	return skipped, nil
}

// retrieveRecords runs the network path, repeating it when the artifact
// download fails, up to MaxAttempts runs in total.
func (f *Fetcher) retrieveRecords(ctx context.Context, query string) ([]*sdf.Record, error) {
	for attempt := 1; ; attempt++ {
		recs, err := f.network(ctx, query)
		if err == nil {
			return recs, nil
		}
		if !errors.Is(err, ErrDownloadFailed) || attempt >= f.cfg.MaxAttempts {
			return nil, err
		}
		fmt.Fprintf(f.w, "error downloading: %v; retrying (attempt %d/%d)\n", err, attempt+1, f.cfg.MaxAttempts)
	}
}

func (f *Fetcher) network(ctx context.Context, query string) ([]*sdf.Record, error) {
	handle, err := f.search.Search(ctx, f.cfg.Database, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	if !handle.Valid() {
		return nil, fmt.Errorf("%w: no query key and web environment returned for %q", ErrSearchFailed, query)
	}
	fmt.Fprintf(f.w, "ESearch returned %d hits\n", handle.Count)

	job, err := f.retrieve.SubmitExport(ctx, handle, types.FormatSDF, types.CompressNone)
	if err != nil {
		return nil, fmt.Errorf("submitting export: %w", err)
	}
	fmt.Fprintf(f.w, "export job %s submitted\n", job)

	status, err := f.await(ctx, job)
	if err != nil {
		return nil, err
	}
	if status != types.JobSuccess {
		msg, merr := f.retrieve.ErrorMessage(ctx, job)
		if merr != nil {
			msg = status.String()
		}
		return nil, &RemoteJobError{Job: job, Status: status, Message: msg}
	}

	loc, err := f.retrieve.DownloadLocation(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("resolving download location: %w", err)
	}
	fmt.Fprintf(f.w, "download URL = %s\n", loc)

	return f.download(ctx, loc)
}

// errPending asks the poll loop for another round.
var errPending = errors.New("export job pending")

// await polls job until it leaves the queued and running states. The wait
// between polls starts at Poll.Interval and grows by Poll.Multiplier up to
// Poll.MaxInterval. Poll.Timeout bounds the whole loop.
func (f *Fetcher) await(ctx context.Context, job types.JobHandle) (types.JobStatus, error) {
	pollCtx := ctx
	if f.cfg.Poll.Timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, f.cfg.Poll.Timeout)
		defer cancel()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.cfg.Poll.Interval
	b.Multiplier = f.cfg.Poll.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.MaxInterval = f.cfg.Poll.MaxInterval
	if b.MaxInterval <= 0 {
		b.MaxInterval = time.Duration(math.MaxInt64)
	}

	status := types.JobQueued
	op := func() error {
		st, err := f.retrieve.PollStatus(pollCtx, job)
		if err != nil {
			return backoff.Permanent(err)
		}
		status = st
		if st.Pending() {
			return errPending
		}
		return nil
	}
	notify := func(_ error, next time.Duration) {
		fmt.Fprintf(f.w, "waiting for export %s to finish (%s), next check in %s\n", job, status, next)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(b, pollCtx), notify)
	if err != nil {
		if ctx.Err() == nil && errors.Is(pollCtx.Err(), context.DeadlineExceeded) {
			return status, fmt.Errorf("%w: job %s still %s after %s", ErrPollTimeout, job, status, f.cfg.Poll.Timeout)
		}
		return status, fmt.Errorf("polling export %s: %w", job, err)
	}
	return status, nil
}

// download fetches loc into a temporary file named after its last path
// segment, parses it, and removes the file.
func (f *Fetcher) download(ctx context.Context, loc string) ([]*sdf.Record, error) {
	tmp, err := os.CreateTemp(f.cfg.TempDir, "*-"+artifactName(loc))
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err := os.Remove(tmpPath); err == nil {
			fmt.Fprintf(f.w, "temp file %s deleted\n", tmpPath)
		}
	}()

	n, fetchErr := f.retrieve.Fetch(ctx, loc, tmp)
	closeErr := tmp.Close()
	if fetchErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, fetchErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("%w: closing temp file: %w", ErrDownloadFailed, closeErr)
	}
	fmt.Fprintf(f.w, "wrote %s to %s\n", humanize.Bytes(uint64(n)), tmpPath)

	in, err := os.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("opening downloaded artifact: %w", err)
	}
	defer in.Close()

	recs, err := sdf.Parse(in)
	if err != nil {
		return nil, fmt.Errorf("parsing downloaded artifact: %w", err)
	}
	fmt.Fprintf(f.w, "got %d record(s)\n", len(recs))
	return recs, nil
}

// artifactName returns the last path segment of loc, or a fixed name when
// the URL has none.
func artifactName(loc string) string {
	name := ""
	if u, err := url.Parse(loc); err == nil {
		name = path.Base(u.Path)
	}
	if name == "" || name == "." || name == "/" {
		return "download.sdf"
	}
	return name
}
