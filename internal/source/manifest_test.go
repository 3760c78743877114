package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joshjhall/artifact-fetcher/internal/checksum"
	"github.com/joshjhall/artifact-fetcher/internal/fetch"
	"github.com/joshjhall/artifact-fetcher/internal/fetcherrors"
)

var (
	digestA = strings.Repeat("a1", 32)
	digestB = strings.Repeat("b2", 32)
)

func testClient() *fetch.Client {
	return fetch.NewClient(fetch.Options{
		ConnectTimeout:  5 * time.Second,
		TransferTimeout: 5 * time.Second,
		Retries:         0,
		RetryBackoff:    time.Millisecond,
	})
}

func manifestServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestManifestSelectsMatchingFilename(t *testing.T) {
	srv := manifestServer(t,
		digestA+"  artifact-linux-amd64.tar.gz\n"+
			digestB+"  artifact-linux-arm64.tar.gz\n")

	src, err := ForKind(KindAggregateManifest, Deps{Client: testClient()})
	if err != nil {
		t.Fatalf("ForKind failed: %v", err)
	}

	rec, err := src.Checksum(context.Background(), Request{
		Artifact:  "artifact",
		Filename:  "artifact-linux-amd64.tar.gz",
		Algorithm: checksum.SHA256,
		URL:       srv.URL,
	})
	if err != nil {
		t.Fatalf("Checksum failed: %v", err)
	}
	if rec.Digest != digestA {
		t.Errorf("got digest %s, want %s", rec.Digest, digestA)
	}
	if rec.Provenance != srv.URL {
		t.Errorf("provenance %q should name the manifest URL", rec.Provenance)
	}
}

func TestManifestToleratesMarkersAndComments(t *testing.T) {
	srv := manifestServer(t,
		"# release checksums\n"+
			"\n"+
			digestA+" *./artifact-linux-amd64.tar.gz\n")

	src, _ := ForKind(KindAggregateManifest, Deps{Client: testClient()})
	rec, err := src.Checksum(context.Background(), Request{
		Filename:  "artifact-linux-amd64.tar.gz",
		Algorithm: checksum.SHA256,
		URL:       srv.URL,
	})
	if err != nil {
		t.Fatalf("Checksum failed: %v", err)
	}
	if rec.Digest != digestA {
		t.Errorf("got digest %s, want %s", rec.Digest, digestA)
	}
}

func TestManifestMissingFilenameFailsTyped(t *testing.T) {
	srv := manifestServer(t, digestA+"  other-file.tar.gz\n")

	src, _ := ForKind(KindAggregateManifest, Deps{Client: testClient()})
	_, err := src.Checksum(context.Background(), Request{
		Filename:  "artifact-linux-amd64.tar.gz",
		Algorithm: checksum.SHA256,
		URL:       srv.URL,
	})
	var notFound *fetcherrors.ChecksumNotFoundInManifestError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ChecksumNotFoundInManifestError, got %T: %v", err, err)
	}
	if notFound.Filename != "artifact-linux-amd64.tar.gz" {
		t.Errorf("error should name the requested file, got %q", notFound.Filename)
	}
}

func TestManifestRefusesAlgorithmDowngrade(t *testing.T) {
	sha1Digest := strings.Repeat("c3", 20)
	srv := manifestServer(t, sha1Digest+"  artifact.tar.gz\n")

	src, _ := ForKind(KindAggregateManifest, Deps{Client: testClient()})
	_, err := src.Checksum(context.Background(), Request{
		Artifact:  "artifact",
		Filename:  "artifact.tar.gz",
		Algorithm: checksum.SHA256,
		URL:       srv.URL,
	})
	var mismatch *fetcherrors.AlgorithmMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected AlgorithmMismatchError, got %T: %v", err, err)
	}
	if mismatch.Found != "sha1" || mismatch.Want != "sha256" {
		t.Errorf("mismatch should report sha1 found, sha256 wanted: %+v", mismatch)
	}
}

func TestManifestGarbageDigestFailsValidation(t *testing.T) {
	srv := manifestServer(t, "not-a-digest-at-all  artifact.tar.gz\n")

	src, _ := ForKind(KindAggregateManifest, Deps{Client: testClient()})
	_, err := src.Checksum(context.Background(), Request{
		Filename:  "artifact.tar.gz",
		Algorithm: checksum.SHA256,
		URL:       srv.URL,
	})
	var formatErr *fetcherrors.InvalidChecksumFormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected InvalidChecksumFormatError, got %T: %v", err, err)
	}
}

func TestFindManifestEntry(t *testing.T) {
	manifest := digestA + "  one.tar.gz\n" + digestB + "  two.tar.gz\n"

	if got, ok := findManifestEntry(manifest, "two.tar.gz"); !ok || got != digestB {
		t.Errorf("findManifestEntry(two) = %q, %v", got, ok)
	}
	if _, ok := findManifestEntry(manifest, "three.tar.gz"); ok {
		t.Error("expected no entry for three.tar.gz")
	}
	if _, ok := findManifestEntry("", "one.tar.gz"); ok {
		t.Error("expected no entry in empty manifest")
	}
}

func FuzzFindManifestEntry(f *testing.F) {
	f.Add(digestA+"  file.tar.gz\n", "file.tar.gz")
	f.Add("", "")
	f.Add("maliciously short\n\n\n", "file")
	f.Add(digestA+" *file\n"+digestB+"  other\n", "other")
	f.Add(strings.Repeat(" ", 1000), "x")

	f.Fuzz(func(t *testing.T, manifest, filename string) {
		// Must never panic; on success the digest must come from a line
		// naming the requested file.
		digest, ok := findManifestEntry(manifest, filename)
		if ok && digest == "" {
			t.Error("reported a match with an empty digest")
		}
	})
}
