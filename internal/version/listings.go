package version

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

// goRelease is one entry of the go.dev download listing.
type goRelease struct {
	Version string `json:"version"`
}

// nodeRelease is one entry of the nodejs.org dist index.
type nodeRelease struct {
	Version string `json:"version"`
}

// pythonDirPattern matches "X.Y.Z/" directory links on the python.org
// FTP index page.
var pythonDirPattern = regexp.MustCompile(`href="(\d+\.\d+\.\d+)/"`)

// listVersions fetches and parses an ecosystem's release listing into
// bare "X.Y.Z" strings. Listings sit behind rate-limited release
// hosting, so the fetch is retried.
func (r *Resolver) listVersions(ctx context.Context, eco Ecosystem, url string) ([]string, error) {
	body, err := r.client.GetWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}

	switch eco {
	case EcosystemGo:
		var releases []goRelease
		if err := json.Unmarshal(body, &releases); err != nil {
			return nil, fmt.Errorf("parsing go download listing: %w", err)
		}
		versions := make([]string, 0, len(releases))
		for _, rel := range releases {
			// go.dev reports "go1.23.4"
			versions = append(versions, strings.TrimPrefix(rel.Version, "go"))
		}
		return versions, nil

	case EcosystemNode:
		var releases []nodeRelease
		if err := json.Unmarshal(body, &releases); err != nil {
			return nil, fmt.Errorf("parsing node dist index: %w", err)
		}
		versions := make([]string, 0, len(releases))
		for _, rel := range releases {
			// nodejs.org reports "v22.1.0"
			versions = append(versions, strings.TrimPrefix(rel.Version, "v"))
		}
		return versions, nil

	case EcosystemPython:
		matches := pythonDirPattern.FindAllStringSubmatch(string(body), -1)
		versions := make([]string, 0, len(matches))
		for _, m := range matches {
			versions = append(versions, m[1])
		}
		return versions, nil
	}

	return nil, fmt.Errorf("no listing parser for ecosystem %q", eco)
}
