package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joshjhall/artifact-fetcher/internal/checksum"
	"github.com/joshjhall/artifact-fetcher/internal/fetch"
	"github.com/joshjhall/artifact-fetcher/internal/fetcherrors"
)

func testClient() *fetch.Client {
	return fetch.NewClient(fetch.Options{
		ConnectTimeout:  5 * time.Second,
		TransferTimeout: 5 * time.Second,
		Retries:         0,
		RetryBackoff:    time.Millisecond,
	})
}

func sha256Of(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func artifactServer(t *testing.T, payload []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// scratchEntries lists leftover files in the scratch directory.
func scratchEntries(t *testing.T, scratch *Scratch) []string {
	t.Helper()
	entries, err := os.ReadDir(scratch.Dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("reading scratch dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestVerifyRoundTrip(t *testing.T) {
	payload := []byte("verified artifact content")
	srv := artifactServer(t, payload)

	scratch := NewScratch(filepath.Join(t.TempDir(), "scratch"))
	dest := filepath.Join(t.TempDir(), "out", "artifact.bin")

	rec := checksum.Record{
		Digest:     sha256Of(payload),
		Algorithm:  checksum.SHA256,
		Provenance: "test",
	}

	d := NewDownloader(testClient(), scratch, false)
	if err := d.Verify(context.Background(), srv.URL, dest, rec); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	// Recomputing the destination digest yields exactly the record's.
	got, err := checksum.File(dest, checksum.SHA256)
	if err != nil {
		t.Fatalf("re-hashing destination: %v", err)
	}
	if got != rec.Digest {
		t.Errorf("destination digest %s, want %s", got, rec.Digest)
	}

	if leftovers := scratchEntries(t, scratch); len(leftovers) != 0 {
		t.Errorf("scratch directory not clean after success: %v", leftovers)
	}
}

func TestVerifyAcceptsUppercaseRecordDigest(t *testing.T) {
	payload := []byte("case insensitive compare")
	srv := artifactServer(t, payload)

	scratch := NewScratch(filepath.Join(t.TempDir(), "scratch"))
	dest := filepath.Join(t.TempDir(), "artifact.bin")

	rec := checksum.Record{
		Digest:     strings.ToUpper(sha256Of(payload)),
		Algorithm:  checksum.SHA256,
		Provenance: "test",
	}

	d := NewDownloader(testClient(), scratch, false)
	if err := d.Verify(context.Background(), srv.URL, dest, rec); err != nil {
		t.Fatalf("Verify failed on uppercase digest: %v", err)
	}
}

func TestVerifyTamperedArtifactFailsAndLeavesNothing(t *testing.T) {
	payload := []byte("actual bytes served by upstream")
	srv := artifactServer(t, payload)

	scratch := NewScratch(filepath.Join(t.TempDir(), "scratch"))
	dest := filepath.Join(t.TempDir(), "out", "artifact.bin")

	rec := checksum.Record{
		Digest:     sha256Of([]byte("what the checksum source promised")),
		Algorithm:  checksum.SHA256,
		Provenance: "test-manifest",
	}

	d := NewDownloader(testClient(), scratch, false)
	err := d.Verify(context.Background(), srv.URL, dest, rec)

	var mismatch *fetcherrors.ChecksumMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected ChecksumMismatchError, got %T: %v", err, err)
	}
	if mismatch.Expected != rec.Digest {
		t.Errorf("error should carry the expected digest")
	}
	if mismatch.Actual != sha256Of(payload) {
		t.Errorf("error should carry the computed digest")
	}

	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("destination must not exist after a checksum mismatch")
	}
	if leftovers := scratchEntries(t, scratch); len(leftovers) != 0 {
		t.Errorf("temp download survived a mismatch: %v", leftovers)
	}
}

func TestVerifyRejectsMalformedRecordBeforeFetching(t *testing.T) {
	var fetched bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetched = true
	}))
	defer srv.Close()

	scratch := NewScratch(filepath.Join(t.TempDir(), "scratch"))
	rec := checksum.Record{Digest: "tooshort", Algorithm: checksum.SHA256}

	d := NewDownloader(testClient(), scratch, false)
	err := d.Verify(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x"), rec)

	var formatErr *fetcherrors.InvalidChecksumFormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected InvalidChecksumFormatError, got %T: %v", err, err)
	}
	if fetched {
		t.Error("a malformed record must never cost a download")
	}
}

func TestVerifyDownloadFailureLeavesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	scratch := NewScratch(filepath.Join(t.TempDir(), "scratch"))
	dest := filepath.Join(t.TempDir(), "artifact.bin")
	rec := checksum.Record{
		Digest:    sha256Of([]byte("irrelevant")),
		Algorithm: checksum.SHA256,
	}

	d := NewDownloader(testClient(), scratch, false)
	err := d.Verify(context.Background(), srv.URL, dest, rec)

	var dlErr *fetcherrors.DownloadFailedError
	if !errors.As(err, &dlErr) {
		t.Fatalf("expected DownloadFailedError, got %T: %v", err, err)
	}
	if leftovers := scratchEntries(t, scratch); len(leftovers) != 0 {
		t.Errorf("temp download survived a failed fetch: %v", leftovers)
	}
}

func TestGuardRejectsNestedDownloads(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "first.partial")
	g, err := acquireCleanup(tmp)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	defer g.Discard()

	if _, err := acquireCleanup(filepath.Join(t.TempDir(), "second.partial")); !errors.Is(err, errGuardBusy) {
		t.Errorf("expected errGuardBusy for nested acquire, got %v", err)
	}
}

func TestGuardDiscardRemovesFileAndReleasesScope(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "dl.partial")
	if err := os.WriteFile(tmp, []byte("partial"), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}

	g, err := acquireCleanup(tmp)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	g.Discard()

	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Error("Discard did not remove the temp file")
	}

	// Scope released: a new acquisition must succeed.
	g2, err := acquireCleanup(tmp)
	if err != nil {
		t.Fatalf("acquire after Discard failed: %v", err)
	}
	g2.Discard()
}

func TestScratchAllocateNamesAreUnique(t *testing.T) {
	scratch := NewScratch(filepath.Join(t.TempDir(), "scratch"))

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		path, err := scratch.Allocate()
		if err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
		if seen[path] {
			t.Fatalf("Allocate produced a duplicate path: %s", path)
		}
		seen[path] = true
	}
}
