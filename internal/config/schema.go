package config

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	sigsyaml "sigs.k8s.io/yaml"
)

// configSchema rejects unknown keys and wrong types before the YAML is
// decoded into the Config struct.
const configSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "scratchDir": {"type": "string"},
    "pinnedChecksums": {"type": "string"},
    "progress": {"type": "boolean"},
    "reportDir": {"type": "string"},
    "network": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "connectTimeoutSeconds": {"type": "integer", "minimum": 1},
        "transferTimeoutSeconds": {"type": "integer", "minimum": 1},
        "retries": {"type": "integer", "minimum": 0},
        "retryBackoffSeconds": {"type": "integer", "minimum": 0}
      }
    },
    "logging": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "level": {"type": "string", "enum": ["debug", "info", "warn", "error"]}
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("fetcher.schema.json", configSchema)

func validateSchema(yamlData []byte) error {
	jsonData, err := sigsyaml.YAMLToJSON(yamlData)
	if err != nil {
		return fmt.Errorf("converting config to JSON for validation: %w", err)
	}

	var doc any
	if err := sigsyaml.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("decoding config for validation: %w", err)
	}
	if doc == nil {
		return nil
	}

	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("config schema validation failed: %w", err)
	}
	return nil
}
