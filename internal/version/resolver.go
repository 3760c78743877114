// Package version resolves partial version specifiers against the
// canonical release listing of an artifact ecosystem.
//
// Only the narrow "X.Y" shape triggers a lookup. A bare major ("3") and
// an already-concrete version ("3.12.4") pass through unchanged with no
// network call; upstream download URLs embed the literal specifier in
// those shapes, and a partial "X.Y" would build a malformed URL.
package version

import (
	"context"
	"strconv"
	"strings"

	"github.com/joshjhall/artifact-fetcher/internal/fetch"
	"github.com/joshjhall/artifact-fetcher/internal/fetcherrors"
	"github.com/joshjhall/artifact-fetcher/internal/utils/logger"
)

// Ecosystem names an upstream with a canonical version listing.
type Ecosystem string

const (
	EcosystemGo     Ecosystem = "go"
	EcosystemNode   Ecosystem = "node"
	EcosystemPython Ecosystem = "python"
)

// ParseEcosystem maps a string tag onto an Ecosystem.
func ParseEcosystem(tag string) (Ecosystem, error) {
	switch Ecosystem(strings.ToLower(strings.TrimSpace(tag))) {
	case EcosystemGo:
		return EcosystemGo, nil
	case EcosystemNode:
		return EcosystemNode, nil
	case EcosystemPython:
		return EcosystemPython, nil
	default:
		return "", &fetcherrors.VersionNotFoundError{
			Ecosystem: tag,
			Reason:    "unknown ecosystem (want go, node or python)",
		}
	}
}

// IsPartial reports whether spec is the resolvable "X.Y" shape: exactly
// one dot separator.
func IsPartial(spec string) bool {
	return strings.Count(spec, ".") == 1
}

// Resolver turns partial specifiers into concrete versions.
type Resolver struct {
	client *fetch.Client
	index  map[Ecosystem]string
}

// NewResolver builds a Resolver over the given client with the default
// listing endpoints.
func NewResolver(client *fetch.Client) *Resolver {
	return &Resolver{
		client: client,
		index: map[Ecosystem]string{
			EcosystemGo:     "https://go.dev/dl/?mode=json&include=all",
			EcosystemNode:   "https://nodejs.org/dist/index.json",
			EcosystemPython: "https://www.python.org/ftp/python/",
		},
	}
}

// OverrideIndexURL points an ecosystem's listing at a different
// endpoint. Used by tests and air-gapped mirrors.
func (r *Resolver) OverrideIndexURL(eco Ecosystem, url string) {
	r.index[eco] = url
}

// Resolve returns the newest concrete version matching a partial "X.Y"
// specifier. Specifiers with zero or two-plus separators are returned
// unchanged without touching the network.
func (r *Resolver) Resolve(ctx context.Context, eco Ecosystem, spec string) (string, error) {
	spec = strings.TrimSpace(spec)
	if !IsPartial(spec) {
		return spec, nil
	}

	log := logger.Logger()

	url, ok := r.index[eco]
	if !ok {
		return "", &fetcherrors.VersionNotFoundError{
			Ecosystem: string(eco),
			Spec:      spec,
			Reason:    "no version listing registered for ecosystem",
		}
	}

	versions, err := r.listVersions(ctx, eco, url)
	if err != nil {
		return "", &fetcherrors.VersionResolutionNetworkError{
			Ecosystem: string(eco),
			Spec:      spec,
			URL:       url,
			Err:       err,
		}
	}

	best := newestWithPrefix(versions, spec+".")
	if best == "" {
		return "", &fetcherrors.VersionNotFoundError{
			Ecosystem: string(eco),
			Spec:      spec,
			Reason:    "listing holds no version with that prefix",
		}
	}

	log.Debugf("resolved %s %q to %s", eco, spec, best)
	return best, nil
}

// newestWithPrefix picks the version with the given prefix whose
// remaining components compare highest numerically.
func newestWithPrefix(versions []string, prefix string) string {
	best := ""
	for _, v := range versions {
		if !strings.HasPrefix(v, prefix) {
			continue
		}
		if best == "" || compareNumeric(v[len(prefix):], best[len(prefix):]) > 0 {
			best = v
		}
	}
	return best
}

// compareNumeric compares dot-separated suffixes component-wise,
// numerically where both components parse as integers.
func compareNumeric(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aok := atoi(as[i])
		bn, bok := atoi(bs[i])
		switch {
		case aok && bok:
			if an != bn {
				if an > bn {
					return 1
				}
				return -1
			}
		default:
			if c := strings.Compare(as[i], bs[i]); c != 0 {
				return c
			}
		}
	}
	return len(as) - len(bs)
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}
