// Package source produces a trusted checksum record for an artifact
// from one of several upstream source shapes. Each shape is its own
// Source implementation, selected by an exhaustive switch over Kind —
// never by runtime string comparison inside the adapters.
//
// Shared contract: a Source returns a structurally valid Record or a
// typed failure. Never a best-effort guess, and never a silent
// downgrade to a weaker algorithm than requested.
package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/joshjhall/artifact-fetcher/internal/checksum"
	"github.com/joshjhall/artifact-fetcher/internal/fetch"
	"github.com/joshjhall/artifact-fetcher/internal/fetcherrors"
)

// Kind identifies a checksum source shape.
type Kind string

const (
	// KindPinned reads a local, reviewed checksum table. Preferred.
	KindPinned Kind = "pinned"
	// KindAggregateManifest reads a "<digest>  <filename>" listing
	// covering a whole release.
	KindAggregateManifest Kind = "aggregate-manifest"
	// KindSidecar reads a one-line companion file next to the artifact.
	KindSidecar Kind = "sidecar"
	// KindRegistrySidecar reads a digest-only body from a package
	// registry endpoint.
	KindRegistrySidecar Kind = "registry-sidecar"
	// KindVendorPage scrapes a checksum out of an HTML page. Brittle;
	// last resort only.
	KindVendorPage Kind = "vendor-page"
)

// ParseKind maps a string tag onto a Kind at the CLI boundary.
func ParseKind(tag string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(tag))) {
	case KindPinned:
		return KindPinned, nil
	case KindAggregateManifest:
		return KindAggregateManifest, nil
	case KindSidecar:
		return KindSidecar, nil
	case KindRegistrySidecar:
		return KindRegistrySidecar, nil
	case KindVendorPage:
		return KindVendorPage, nil
	default:
		return "", fmt.Errorf("unknown checksum source kind %q", tag)
	}
}

// Request identifies the artifact whose checksum is wanted and where
// the checksum document lives.
type Request struct {
	// Artifact is the logical artifact name, for error messages and
	// pinned-table lookup.
	Artifact string
	// Version is the concrete artifact version (pinned-table lookup).
	Version string
	// Filename is the release filename to match in aggregate manifests
	// and filename-bearing sidecars.
	Filename string
	// Algorithm is the required digest algorithm. Sources fail rather
	// than substitute another.
	Algorithm checksum.Algorithm
	// URL locates the checksum document (manifest, sidecar, page). Not
	// used by the pinned source.
	URL string
	// Pattern is the vendor-page extraction regexp; one capture group.
	Pattern string
}

// Source produces a checksum record for a request.
type Source interface {
	Kind() Kind
	Checksum(ctx context.Context, req Request) (checksum.Record, error)
}

// fetchGetter is the slice of fetch.Client the adapters use.
type fetchGetter interface {
	Get(ctx context.Context, url string) ([]byte, error)
	GetWithRetry(ctx context.Context, url string) ([]byte, error)
}

var _ fetchGetter = (*fetch.Client)(nil)

// Deps carries the collaborators adapters need.
type Deps struct {
	Client *fetch.Client
	// PinnedTablePath is the pinned checksum table location.
	PinnedTablePath string
}

// ForKind returns the Source implementation for a Kind. The switch is
// exhaustive over all declared kinds.
func ForKind(k Kind, deps Deps) (Source, error) {
	switch k {
	case KindPinned:
		return &pinnedSource{path: deps.PinnedTablePath}, nil
	case KindAggregateManifest:
		return &manifestSource{client: deps.Client}, nil
	case KindSidecar:
		return &sidecarSource{client: deps.Client, registry: false}, nil
	case KindRegistrySidecar:
		return &sidecarSource{client: deps.Client, registry: true}, nil
	case KindVendorPage:
		return &vendorPageSource{client: deps.Client}, nil
	default:
		return nil, fmt.Errorf("unknown checksum source kind %q", string(k))
	}
}

// record builds and validates the Record for an extracted digest,
// failing on algorithm downgrade before structural validation.
func record(digest string, req Request, provenance string) (checksum.Record, error) {
	digest = strings.TrimSpace(digest)

	if inferred := checksum.InferAlgorithm(digest); inferred != "" && inferred != req.Algorithm {
		return checksum.Record{}, &fetcherrors.AlgorithmMismatchError{
			Artifact: req.Artifact,
			Source:   provenance,
			Want:     string(req.Algorithm),
			Found:    string(inferred),
		}
	}

	rec := checksum.Record{
		Digest:     digest,
		Algorithm:  req.Algorithm,
		Provenance: provenance,
	}
	if err := rec.Validate(); err != nil {
		return checksum.Record{}, err
	}
	return rec, nil
}
