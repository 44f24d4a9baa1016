// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache manages on-disk compound caches: one SDF file per compound,
// named by its identifier, inside a caller-chosen directory. A populated
// directory is treated as a complete result set.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/pdiddy/compound-fetch/internal/sdf"
)

// LockRetryDelay is how often Begin retries a held cache lock.
var LockRetryDelay = 100 * time.Millisecond

// Populated reports whether dir exists and holds at least one entry.
// A missing directory is not an error.
func Populated(dir string) (bool, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("checking cache directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return false, fmt.Errorf("cache path %s is not a directory", dir)
	}

	f, err := os.Open(dir)
	if err != nil {
		return false, fmt.Errorf("opening cache directory %s: %w", dir, err)
	}
	defer f.Close()

	names, err := f.Readdirnames(1)
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("listing cache directory %s: %w", dir, err)
	}
	return len(names) > 0, nil
}

// ReadAll parses every regular, non-hidden file in dir independently and
// returns their records in directory order. Files that fail to parse are
// reported to w and counted in bad.
func ReadAll(dir string, w io.Writer) (recs []*sdf.Record, bad int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("reading cache directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		fileRecs, err := readFile(path)
		if err != nil {
			fmt.Fprintf(w, "  warning: skipping cached file %s: %v\n", entry.Name(), err)
			bad++
			continue
		}
		recs = append(recs, fileRecs...)
	}
	return recs, bad, nil
}

func readFile(path string) ([]*sdf.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return sdf.Parse(f)
}

// FileName validates id for use as a cache file name.
func FileName(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || id == "." || id == ".." || strings.HasPrefix(id, ".") ||
		strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return "", fmt.Errorf("identifier %q is not a valid cache file name", id)
	}
	return id, nil
}

// Writer stages cache files in a sibling directory and moves them into place
// on Commit, so an interrupted run never leaves a partial cache behind.
// Writers targeting the same directory are serialized by a lock file next
// to it.
type Writer struct {
	dir     string
	staging string
	lock    *flock.Flock
	written int
	done    bool
}

// Begin locks dir and opens a staging directory beside it. It blocks until
// the lock is free or ctx is done. The lock file <dir>.lock is left in
// place after release.
func Begin(ctx context.Context, dir string) (*Writer, error) {
	dir = filepath.Clean(dir)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", parent, err)
	}

	lock := flock.New(dir + ".lock")
	ok, err := lock.TryLockContext(ctx, LockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("locking cache %s: %w", dir, err)
	}
	if !ok {
		return nil, fmt.Errorf("locking cache %s: lock not acquired", dir)
	}

	staging, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+".partial-*")
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}

	return &Writer{dir: dir, staging: staging, lock: lock}, nil
}

// Put writes rec as the file named id.
func (cw *Writer) Put(id string, rec *sdf.Record) error {
	if cw.done {
		return fmt.Errorf("cache writer for %s already closed", cw.dir)
	}
	name, err := FileName(id)
	if err != nil {
		return err
	}

	path := filepath.Join(cw.staging, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating cache file %s: %w", name, err)
	}
	writeErr := sdf.Write(f, rec)
	closeErr := f.Close()
	if writeErr != nil {
		return writeErr
	}
	if closeErr != nil {
		return fmt.Errorf("closing cache file %s: %w", name, closeErr)
	}
	cw.written++
	return nil
}

// Written returns the number of files staged so far.
func (cw *Writer) Written() int {
	return cw.written
}

// Commit moves the staged files into the cache directory and releases the lock.
// An existing empty directory is replaced; files in a non-empty one are
// overwritten by name.
func (cw *Writer) Commit() error {
	if cw.done {
		return fmt.Errorf("cache writer for %s already closed", cw.dir)
	}
	defer cw.release()

	populated, err := Populated(cw.dir)
	if err != nil {
		return err
	}

	if !populated {
		if err := os.Remove(cw.dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("replacing empty cache directory %s: %w", cw.dir, err)
		}
		if err := os.Rename(cw.staging, cw.dir); err != nil {
			return fmt.Errorf("moving staged cache into %s: %w", cw.dir, err)
		}
		return nil
	}

	entries, err := os.ReadDir(cw.staging)
	if err != nil {
		return fmt.Errorf("reading staging directory: %w", err)
	}
	for _, e := range entries {
		if err := os.Rename(filepath.Join(cw.staging, e.Name()), filepath.Join(cw.dir, e.Name())); err != nil {
			return fmt.Errorf("moving cache file %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Abort discards staged files and releases the lock. It is safe to call
// after Commit.
func (cw *Writer) Abort() {
	if cw.done {
		return
	}
	cw.release()
}

func (cw *Writer) release() {
	cw.done = true
	os.RemoveAll(cw.staging)
	cw.lock.Unlock()
}
