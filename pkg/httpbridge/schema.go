package httpbridge

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Request payloads from the extension are validated against JSON schemas
// before they reach the orchestrator, so a stale or mismatched extension
// build fails loudly instead of half-working.

var generateSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"page_url", "image_url"},
	"properties": map[string]interface{}{
		"page_url":  map[string]interface{}{"type": "string", "minLength": 1},
		"image_url": map[string]interface{}{"type": "string", "minLength": 1},
	},
	"additionalProperties": false,
}

var updateSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"image_url", "alt_text"},
	"properties": map[string]interface{}{
		"image_url": map[string]interface{}{"type": "string", "minLength": 1},
		"alt_text":  map[string]interface{}{"type": "string", "minLength": 1},
	},
	"additionalProperties": false,
}

var syncSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"image_url"},
	"properties": map[string]interface{}{
		"image_url": map[string]interface{}{"type": "string", "minLength": 1},
		"sync_mode": map[string]interface{}{"type": "string"},
	},
	"additionalProperties": false,
}

var settingsSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"api_key":                 map[string]interface{}{"type": "string"},
		"wp_site_url":             map[string]interface{}{"type": "string"},
		"wp_username":             map[string]interface{}{"type": "string"},
		"wp_application_password": map[string]interface{}{"type": "string"},
		"language":                map[string]interface{}{"type": "string", "enum": []string{"en", "cs"}},
		"default_sync_mode":       map[string]interface{}{"type": "string"},
	},
	"additionalProperties": false,
}

// validateJSON checks a request body against a schema and returns a
// single human-readable message on failure.
func validateJSON(schema map[string]interface{}, body []byte) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewBytesLoader(body)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}

	if !result.Valid() {
		var issues []string
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return fmt.Errorf("invalid request: %s", strings.Join(issues, "; "))
	}

	return nil
}
