// Package fetcherrors defines the terminal error taxonomy for the
// artifact retrieval pipeline. Every failure a caller can observe is one
// of these types; installer scripts branch on the type, humans read the
// message, which always names the artifact, the attempted source, and
// the exact reason.
package fetcherrors

import "fmt"

// InvalidChecksumFormatError reports a digest that is structurally
// malformed for its algorithm: wrong length, non-hex characters, or
// empty. Raised before any artifact byte is fetched.
type InvalidChecksumFormatError struct {
	Digest    string
	Algorithm string
	Reason    string
}

func (e *InvalidChecksumFormatError) Error() string {
	return fmt.Sprintf("invalid %s checksum %q: %s", e.Algorithm, e.Digest, e.Reason)
}

// VersionNotFoundError reports that the upstream listing was consulted
// but contained no version matching the requested specifier, or that
// the ecosystem itself is unknown.
type VersionNotFoundError struct {
	Ecosystem string
	Spec      string
	Reason    string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("no %s version matching %q: %s", e.Ecosystem, e.Spec, e.Reason)
}

// VersionResolutionNetworkError reports that the canonical version
// listing was unreachable. The partial specifier is never used as a
// literal version in this case.
type VersionResolutionNetworkError struct {
	Ecosystem string
	Spec      string
	URL       string
	Err       error
}

func (e *VersionResolutionNetworkError) Error() string {
	return fmt.Sprintf("resolving %s version %q: listing %s unreachable: %v",
		e.Ecosystem, e.Spec, e.URL, e.Err)
}

func (e *VersionResolutionNetworkError) Unwrap() error { return e.Err }

// ChecksumNotFoundInManifestError reports that a checksum document was
// fetched and parsed but held no entry for the requested file.
type ChecksumNotFoundInManifestError struct {
	Filename string
	Source   string
}

func (e *ChecksumNotFoundInManifestError) Error() string {
	return fmt.Sprintf("no checksum for %q in %s", e.Filename, e.Source)
}

// AlgorithmMismatchError reports that a source produced a digest of a
// different algorithm than requested. Strength is never silently
// downgraded; the caller must pick a source that carries the requested
// algorithm.
type AlgorithmMismatchError struct {
	Artifact string
	Source   string
	Want     string
	Found    string
}

func (e *AlgorithmMismatchError) Error() string {
	return fmt.Sprintf("checksum source %s offers %s for %s, requested %s; refusing to substitute",
		e.Source, e.Found, e.Artifact, e.Want)
}

// UpstreamUnavailableError reports that a metadata or checksum fetch
// failed after its bounded retries were exhausted.
type UpstreamUnavailableError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("upstream %s unavailable after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error { return e.Err }

// DownloadFailedError reports a failed artifact transfer: transport
// error, non-success status, timeout, or a local write failure. The
// artifact download itself is never retried.
type DownloadFailedError struct {
	URL    string
	Status int
	Err    error
}

func (e *DownloadFailedError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("downloading %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("downloading %s: %v", e.URL, e.Err)
}

func (e *DownloadFailedError) Unwrap() error { return e.Err }

// ChecksumMismatchError reports that the downloaded artifact's computed
// digest differs from the trusted record. This is the security-relevant
// failure: possible tampering or a stale checksum source. It is always
// fatal to the request and must fail the caller's build step.
type ChecksumMismatchError struct {
	URL       string
	Source    string
	Algorithm string
	Expected  string
	Actual    string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%s checksum mismatch for %s (checksum from %s): expected %s, got %s",
		e.Algorithm, e.URL, e.Source, e.Expected, e.Actual)
}
