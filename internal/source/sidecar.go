package source

import (
	"context"
	"strings"

	"github.com/joshjhall/artifact-fetcher/internal/checksum"
	"github.com/joshjhall/artifact-fetcher/internal/fetcherrors"
)

// sidecarSource reads a one-line companion file whose content is the
// digest, optionally followed by the artifact filename. The registry
// variant covers package-registry endpoints that serve the digest
// alone; both sit behind rate-limited hosting and are fetched with
// retries.
type sidecarSource struct {
	client   fetchGetter
	registry bool
}

func (s *sidecarSource) Kind() Kind {
	if s.registry {
		return KindRegistrySidecar
	}
	return KindSidecar
}

func (s *sidecarSource) Checksum(ctx context.Context, req Request) (checksum.Record, error) {
	body, err := s.client.GetWithRetry(ctx, req.URL)
	if err != nil {
		return checksum.Record{}, err
	}

	line := firstLine(string(body))
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return checksum.Record{}, &fetcherrors.ChecksumNotFoundInManifestError{
			Filename: req.Filename,
			Source:   req.URL,
		}
	}

	// A filename-bearing sidecar must name the file we asked about.
	if !s.registry && len(fields) > 1 && req.Filename != "" {
		name := strings.TrimPrefix(strings.TrimPrefix(fields[1], "*"), "./")
		if name != req.Filename {
			return checksum.Record{}, &fetcherrors.ChecksumNotFoundInManifestError{
				Filename: req.Filename,
				Source:   req.URL,
			}
		}
	}

	return record(fields[0], req, req.URL)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
