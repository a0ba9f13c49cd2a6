package parser

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// filterSchema describes the shape of an inbound filter document. Keys and
// operators inside where clauses are not constrained here; the compiler
// resolves them against the entity.
const filterSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "where": {
      "type": "object",
      "properties": {
        "and": {"type": "array", "items": {"$ref": "#/definitions/where"}},
        "or":  {"type": "array", "items": {"$ref": "#/definitions/where"}}
      }
    },
    "inclusion": {
      "oneOf": [
        {"type": "string"},
        {
          "type": "object",
          "required": ["relation"],
          "properties": {
            "relation": {"type": "string"},
            "scope": {"$ref": "#"}
          }
        }
      ]
    }
  },
  "type": "object",
  "properties": {
    "where": {"$ref": "#/definitions/where"},
    "fields": {
      "oneOf": [
        {"type": "array", "items": {"type": "string"}},
        {"type": "object", "additionalProperties": {"type": "boolean"}}
      ]
    },
    "order": {
      "oneOf": [
        {"type": "string"},
        {"type": "array", "items": {"type": "string"}}
      ]
    },
    "limit":  {"type": "integer"},
    "offset": {"type": "integer"},
    "skip":   {"type": "integer"},
    "include": {
      "oneOf": [
        {"$ref": "#/definitions/inclusion"},
        {"type": "array", "items": {"$ref": "#/definitions/inclusion"}}
      ]
    }
  }
}`

var compiledSchema = mustSchema(filterSchema)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("parser: invalid filter schema: %v", err))
	}
	return schema
}

// validateShape checks the raw document against filterSchema and returns
// a readable summary of the violations.
func validateShape(raw string) error {
	result, err := compiledSchema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}
	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}
