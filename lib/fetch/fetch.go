// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/winbindiff/lib/binhash"
	"github.com/bureau-foundation/winbindiff/lib/winbindex"
)

// DefaultConcurrency bounds simultaneous downloads when
// Pipeline.Concurrency is zero.
const DefaultConcurrency = 8

// DefaultSymbolServer is the public Microsoft symbol server host.
const DefaultSymbolServer = "msdl.microsoft.com"

// maxErrorBody bounds how much of a failed response body is quoted in
// the error.
const maxErrorBody = 512

// ErrNotDownloadable is the Result error for records that lack the PE
// timestamp or image size needed to build a download URL.
var ErrNotDownloadable = errors.New("record has no download URL")

// StatusError reports a response other than 200 OK.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}

// Result is the outcome of fetching one record.
type Result struct {
	Record winbindex.Record

	// Path is the destination file. Set for every record, including
	// failed ones.
	Path string

	// Cached is true when the file already existed and no request was
	// made.
	Cached bool

	// Err is nil on success.
	Err error
}

// OK reports whether the file is present at Path.
func (r Result) OK() bool {
	return r.Err == nil
}

// Pipeline fetches batches of records. The zero value is usable:
// http.DefaultClient, the Microsoft symbol server, eight workers, no
// verification and slog.Default().
type Pipeline struct {
	Client       *http.Client
	SymbolServer string
	Concurrency  int

	// Verify checks each downloaded body against the record's SHA256
	// hash before renaming it into place. Files already on disk are
	// hashed too, and one that does not match is downloaded again.
	Verify bool

	Logger *slog.Logger
}

// Path returns the destination of record inside dir.
func Path(dir string, record winbindex.Record) string {
	return filepath.Join(dir, record.FileName())
}

// Fetch downloads every record into dir and returns one Result per
// input record, in input order. It returns once every worker has
// finished. Cancelling ctx stops dispatch; records that were never
// started report ctx.Err().
func (p *Pipeline) Fetch(ctx context.Context, dir string, records []winbindex.Record) []Result {
	results := make([]Result, len(records))
	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	type workItem struct {
		index  int
		record winbindex.Record
	}
	type workResult struct {
		index  int
		result Result
	}

	work := make(chan workItem)
	done := make(chan workResult)

	workers := min(concurrency, len(records))
	for range workers {
		go func() {
			for item := range work {
				done <- workResult{index: item.index, result: p.fetchOne(ctx, dir, item.record)}
			}
		}()
	}

	go func() {
		defer close(work)
		for index, record := range records {
			select {
			case work <- workItem{index: index, record: record}:
			case <-ctx.Done():
				for ; index < len(records); index++ {
					done <- workResult{index: index, result: Result{
						Record: records[index],
						Path:   Path(dir, records[index]),
						Err:    ctx.Err(),
					}}
				}
				return
			}
		}
	}()

	for range records {
		finished := <-done
		results[finished.index] = finished.result
	}
	return results
}

func (p *Pipeline) fetchOne(ctx context.Context, dir string, record winbindex.Record) Result {
	logger := p.logger().With("hash", record.Hash(), "binary", record.Name())
	result := Result{Record: record, Path: Path(dir, record)}

	url, ok := record.DownloadURL(p.symbolServer())
	if !ok {
		result.Err = ErrNotDownloadable
		logger.Debug("skipping record without download URL")
		return result
	}

	if _, err := os.Stat(result.Path); err == nil {
		if !p.Verify {
			result.Cached = true
			logger.Debug("binary already present", "path", result.Path)
			return result
		}
		verifyErr := binhash.VerifyFile(result.Path, record.Hash())
		if verifyErr == nil {
			result.Cached = true
			logger.Debug("binary already present and verified", "path", result.Path)
			return result
		}
		// A corrupt cached copy is replaced by a fresh download.
		logger.Warn("cached binary failed verification", "path", result.Path, "error", verifyErr)
		if err := os.Remove(result.Path); err != nil {
			result.Err = fmt.Errorf("removing unverified %s: %w", result.Path, err)
			return result
		}
	}

	if err := p.download(ctx, url, record.Hash(), result.Path); err != nil {
		result.Err = err
		logger.Warn("download failed", "url", url, "error", err)
		return result
	}
	logger.Info("downloaded binary", "path", result.Path)
	return result
}

// download GETs url into path through a temporary file in the same
// directory.
func (p *Pipeline) download(ctx context.Context, url, hash, path string) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", url, err)
	}
	response, err := p.client().Do(request)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
		return &StatusError{URL: url, StatusCode: response.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	temp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tempPath := temp.Name()
	defer os.Remove(tempPath) // no-op after a successful rename

	var sink io.Writer = temp
	var verifier *binhash.Verifier
	if p.Verify {
		verifier, err = binhash.NewVerifier(hash)
		if err != nil {
			temp.Close()
			return fmt.Errorf("record hash: %w", err)
		}
		sink = io.MultiWriter(temp, verifier)
	}

	if _, err := io.Copy(sink, response.Body); err != nil {
		temp.Close()
		return fmt.Errorf("reading body of %s: %w", url, err)
	}
	if err := temp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tempPath, err)
	}
	if verifier != nil {
		if err := verifier.Verify(); err != nil {
			return fmt.Errorf("verifying %s: %w", url, err)
		}
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}

func (p *Pipeline) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return http.DefaultClient
}

func (p *Pipeline) symbolServer() string {
	if p.SymbolServer != "" {
		return p.SymbolServer
	}
	return DefaultSymbolServer
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
