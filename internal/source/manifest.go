package source

import (
	"bufio"
	"context"
	"strings"

	"github.com/joshjhall/artifact-fetcher/internal/checksum"
	"github.com/joshjhall/artifact-fetcher/internal/fetcherrors"
)

// manifestSource reads an aggregate manifest: one text file listing
// "<digest>  <filename>" pairs for every file in a release (the
// SHA256SUMS convention).
type manifestSource struct {
	client fetchGetter
}

func (s *manifestSource) Kind() Kind { return KindAggregateManifest }

func (s *manifestSource) Checksum(ctx context.Context, req Request) (checksum.Record, error) {
	body, err := s.client.GetWithRetry(ctx, req.URL)
	if err != nil {
		return checksum.Record{}, err
	}

	digest, ok := findManifestEntry(string(body), req.Filename)
	if !ok {
		return checksum.Record{}, &fetcherrors.ChecksumNotFoundInManifestError{
			Filename: req.Filename,
			Source:   req.URL,
		}
	}
	return record(digest, req, req.URL)
}

// findManifestEntry scans manifest lines for the exact filename and
// returns its digest. Filenames may carry the "*" binary-mode marker or
// a "./" prefix; both are tolerated.
func findManifestEntry(manifest, filename string) (string, bool) {
	scanner := bufio.NewScanner(strings.NewReader(manifest))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		name := strings.TrimPrefix(strings.TrimPrefix(fields[1], "*"), "./")
		if name == filename {
			return fields[0], true
		}
	}
	return "", false
}
