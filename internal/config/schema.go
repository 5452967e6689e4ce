package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed config.schema.json
var configSchema string

// Schema returns the JSON schema idxmaint.toml is validated against
func Schema() string {
	return configSchema
}

// validateDocument checks raw TOML against the embedded schema, so typos in
// key names fail loudly instead of silently keeping defaults.
func validateDocument(data []byte) error {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("toml: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to convert config for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(configSchema),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed to run: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var details []string
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("schema violations:\n  - %s", strings.Join(details, "\n  - "))
}
