package source

import (
	"context"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/joshjhall/artifact-fetcher/internal/checksum"
	"github.com/joshjhall/artifact-fetcher/internal/fetcherrors"
)

// pinnedSource reads a local, reviewed table of known-good checksums.
// Updating a pin is a code-reviewed change, which makes this the
// preferred source: no network trust at checksum time at all.
//
// Table shape (YAML):
//
//	artifacts:
//	  jetbrains-mono:
//	    "2.304":
//	      algorithm: sha512
//	      digest: "1889354a..."
type pinnedSource struct {
	path string
}

// pinnedTable is the decoded table file.
type pinnedTable struct {
	Artifacts map[string]map[string]pinnedEntry `json:"artifacts"`
}

type pinnedEntry struct {
	Algorithm string `json:"algorithm"`
	Digest    string `json:"digest"`
}

// pinnedSchema rejects malformed tables before any lookup.
const pinnedSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "required": ["artifacts"],
  "properties": {
    "artifacts": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "additionalProperties": {
          "type": "object",
          "additionalProperties": false,
          "required": ["algorithm", "digest"],
          "properties": {
            "algorithm": {"type": "string", "enum": ["sha1", "sha256", "sha512"]},
            "digest": {"type": "string", "pattern": "^[0-9a-fA-F]+$"}
          }
        }
      }
    }
  }
}`

var compiledPinnedSchema = jsonschema.MustCompileString("pinned.schema.json", pinnedSchema)

func (s *pinnedSource) Kind() Kind { return KindPinned }

func (s *pinnedSource) Checksum(ctx context.Context, req Request) (checksum.Record, error) {
	if s.path == "" {
		return checksum.Record{}, fmt.Errorf("no pinned checksum table configured")
	}

	table, err := loadPinnedTable(s.path)
	if err != nil {
		return checksum.Record{}, err
	}

	versions, ok := table.Artifacts[req.Artifact]
	if !ok {
		return checksum.Record{}, &fetcherrors.ChecksumNotFoundInManifestError{
			Filename: req.Artifact,
			Source:   s.path,
		}
	}
	entry, ok := versions[req.Version]
	if !ok {
		return checksum.Record{}, &fetcherrors.ChecksumNotFoundInManifestError{
			Filename: req.Artifact + "@" + req.Version,
			Source:   s.path,
		}
	}

	if entry.Algorithm != string(req.Algorithm) {
		return checksum.Record{}, &fetcherrors.AlgorithmMismatchError{
			Artifact: req.Artifact,
			Source:   s.path,
			Want:     string(req.Algorithm),
			Found:    entry.Algorithm,
		}
	}

	return record(entry.Digest, req, s.path)
}

// loadPinnedTable reads, schema-validates and decodes the table file.
func loadPinnedTable(path string) (*pinnedTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pinned checksum table %s: %w", path, err)
	}

	jsonData, err := sigsyaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("converting pinned table %s to JSON: %w", path, err)
	}

	var doc any
	if err := sigsyaml.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("decoding pinned table %s: %w", path, err)
	}
	if err := compiledPinnedSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("pinned table %s failed schema validation: %w", path, err)
	}

	var table pinnedTable
	if err := sigsyaml.Unmarshal(jsonData, &table); err != nil {
		return nil, fmt.Errorf("parsing pinned table %s: %w", path, err)
	}
	return &table, nil
}
