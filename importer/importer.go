// Package importer loads externally authored form definitions (YAML or JSON)
// and validates them before they reach the store. Definitions use the same
// camelCase keys as the HTTP API.
package importer

import (
	"os"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/fieldline/fieldline/model"
)

// Parse decodes a form definition. YAML is the primary format; JSON parses
// as a YAML subset. The definition is structurally validated and missing ids
// are assigned, so the result is ready to store.
func Parse(data []byte) (*model.Form, error) {
	// Round-trip through an untyped document: yaml.v3 ignores json struct
	// tags, the json codec honors the API's camelCase keys.
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parse form definition")
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "normalize form definition")
	}

	form := &model.Form{}
	if err := json.Unmarshal(raw, form); err != nil {
		return nil, errors.Wrap(err, "decode form definition")
	}

	if err := form.Validate(); err != nil {
		return nil, err
	}
	form.AssignIDs()
	return form, nil
}

// ParseFile reads and parses a definition from disk (the -import flag).
func ParseFile(path string) (*model.Form, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read form definition")
	}
	return Parse(data)
}
