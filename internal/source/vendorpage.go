package source

import (
	"context"
	"fmt"
	"regexp"

	"github.com/joshjhall/artifact-fetcher/internal/checksum"
	"github.com/joshjhall/artifact-fetcher/internal/fetcherrors"
	"github.com/joshjhall/artifact-fetcher/internal/utils/logger"
)

// vendorPageSource extracts a checksum from an unschemed vendor HTML
// page via a caller-supplied text pattern. This is the brittle
// last-resort path: prefer the pinned table or a real manifest. Pages
// are one-off documents, so the fetch is never retried.
type vendorPageSource struct {
	client fetchGetter
}

// markupToken strips residual tags and entities that pages tend to wrap
// around the digest.
var markupToken = regexp.MustCompile(`<[^>]*>|&[a-zA-Z#0-9]+;`)

func (s *vendorPageSource) Kind() Kind { return KindVendorPage }

func (s *vendorPageSource) Checksum(ctx context.Context, req Request) (checksum.Record, error) {
	log := logger.Logger()
	log.Warnf("extracting checksum for %s by scraping %s; pin this checksum instead where possible",
		req.Artifact, req.URL)

	if req.Pattern == "" {
		return checksum.Record{}, fmt.Errorf("vendor-page source for %s needs an extraction pattern", req.Artifact)
	}
	pattern, err := regexp.Compile(req.Pattern)
	if err != nil {
		return checksum.Record{}, fmt.Errorf("invalid extraction pattern %q: %w", req.Pattern, err)
	}

	body, err := s.client.Get(ctx, req.URL)
	if err != nil {
		return checksum.Record{}, err
	}

	match := pattern.FindStringSubmatch(string(body))
	if match == nil {
		return checksum.Record{}, &fetcherrors.ChecksumNotFoundInManifestError{
			Filename: req.Filename,
			Source:   req.URL,
		}
	}

	extracted := match[0]
	if len(match) > 1 {
		extracted = match[1]
	}
	extracted = markupToken.ReplaceAllString(extracted, "")

	return record(extracted, req, req.URL)
}
