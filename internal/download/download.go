// Package download orchestrates the fetch-verify-install sequence for a
// single artifact. Per request the flow is a small state machine:
//
//	INIT -> FETCHING_ARTIFACT -> COMPUTING_DIGEST -> COMPARING
//	     -> INSTALLING -> INSTALLED, or FAILED
//
// A temp file in the scratch directory is registered for cleanup before
// the first byte arrives and deregistered only after the atomic rename
// to the destination commits. No destination file is ever produced from
// an unverified download, and no temp file outlives its request.
package download

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"github.com/joshjhall/artifact-fetcher/internal/checksum"
	"github.com/joshjhall/artifact-fetcher/internal/fetch"
	"github.com/joshjhall/artifact-fetcher/internal/fetcherrors"
	"github.com/joshjhall/artifact-fetcher/internal/utils/logger"
)

// Downloader runs verified downloads. One request fully resolves before
// the next begins; there is no fan-out inside this subsystem.
type Downloader struct {
	client   *fetch.Client
	scratch  *Scratch
	progress bool
}

// NewDownloader builds a Downloader over the shared fetch client and
// scratch directory.
func NewDownloader(client *fetch.Client, scratch *Scratch, progress bool) *Downloader {
	return &Downloader{client: client, scratch: scratch, progress: progress}
}

// Verify downloads url, verifies it against rec, and atomically
// installs it at dest. On any failure dest is untouched and the temp
// file is removed.
func (d *Downloader) Verify(ctx context.Context, url, dest string, rec checksum.Record) error {
	log := logger.Logger()

	tmp, guard, err := d.fetchVerified(ctx, url, rec)
	if err != nil {
		return err
	}

	// INSTALLING: same-filesystem rename; the scratch directory must
	// share a filesystem with the destination for the install to be
	// atomic.
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		guard.Discard()
		return &fetcherrors.DownloadFailedError{URL: url, Err: err}
	}
	if err := os.Rename(tmp, dest); err != nil {
		guard.Discard()
		return &fetcherrors.DownloadFailedError{URL: url, Err: err}
	}
	guard.Promote()

	log.Infof("installed %s at %s (%s verified against %s)", url, dest, rec.Algorithm, rec.Provenance)
	return nil
}

// fetchVerified runs INIT through COMPARING: it allocates the temp
// file, streams the body through the digest, and compares. On success
// the temp file holds the verified bytes and the caller owns the guard;
// on failure the temp file is already gone.
func (d *Downloader) fetchVerified(ctx context.Context, url string, rec checksum.Record) (string, *cleanupGuard, error) {
	log := logger.Logger()

	// Validate-before-fetch: a malformed record never costs a download.
	if err := rec.Validate(); err != nil {
		return "", nil, err
	}

	// INIT
	tmp, err := d.scratch.Allocate()
	if err != nil {
		return "", nil, &fetcherrors.DownloadFailedError{URL: url, Err: err}
	}
	guard, err := acquireCleanup(tmp)
	if err != nil {
		return "", nil, err
	}

	// FETCHING_ARTIFACT
	body, size, err := d.client.Stream(ctx, url)
	if err != nil {
		guard.Discard()
		return "", nil, err
	}
	defer body.Close()

	hasher, err := rec.Algorithm.NewHash()
	if err != nil {
		guard.Discard()
		return "", nil, err
	}

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		guard.Discard()
		return "", nil, &fetcherrors.DownloadFailedError{URL: url, Err: err}
	}

	var w io.Writer = io.MultiWriter(f, hasher)
	if d.progress {
		bar := progressbar.DefaultBytes(size, "downloading "+filepath.Base(url))
		w = io.MultiWriter(w, bar)
	}

	if _, err := io.Copy(w, body); err != nil {
		f.Close()
		guard.Discard()
		return "", nil, &fetcherrors.DownloadFailedError{URL: url, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		guard.Discard()
		return "", nil, &fetcherrors.DownloadFailedError{URL: url, Err: err}
	}
	if err := f.Close(); err != nil {
		guard.Discard()
		return "", nil, &fetcherrors.DownloadFailedError{URL: url, Err: err}
	}

	// COMPUTING_DIGEST / COMPARING
	actual := hex.EncodeToString(hasher.Sum(nil))
	if !checksum.Equal(actual, rec.Digest) {
		guard.Discard()
		return "", nil, &fetcherrors.ChecksumMismatchError{
			URL:       url,
			Source:    rec.Provenance,
			Algorithm: string(rec.Algorithm),
			Expected:  rec.Digest,
			Actual:    actual,
		}
	}

	log.Debugf("digest verified for %s: %s", url, actual)
	return tmp, guard, nil
}

// VerifyAndExtract downloads and verifies the archive at url, then
// unpacks it into destDir. Verification always targets the downloaded
// archive; extraction is a pure post-success step.
func (d *Downloader) VerifyAndExtract(ctx context.Context, url, destDir string, rec checksum.Record, format ArchiveFormat) error {
	log := logger.Logger()

	if format == "" {
		detected, err := DetectFormat(url)
		if err != nil {
			return err
		}
		format = detected
	}

	tmp, guard, err := d.fetchVerified(ctx, url, rec)
	if err != nil {
		return err
	}
	defer guard.Discard()

	if err := extractArchive(tmp, destDir, format); err != nil {
		return fmt.Errorf("extracting %s into %s: %w", url, destDir, err)
	}

	log.Infof("extracted %s into %s (%s verified against %s)", url, destDir, rec.Algorithm, rec.Provenance)
	return nil
}
