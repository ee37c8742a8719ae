package corpus

import (
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "corpus.schema.json"

// corpusSchema describes the corpus file. Records may carry extra fields.
const corpusSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["prompt"],
    "properties": {
      "id":           {"type": "string"},
      "prompt":       {"type": "string", "pattern": "\\S"},
      "images":       {"type": "array", "items": {"type": "string"}},
      "tags":         {"type": "array", "items": {"type": "string"}},
      "style":        {"type": "string"},
      "source_url":   {"type": "string"},
      "author":       {"type": "string"},
      "tool":         {"type": "string"},
      "created_at":   {"type": "string"},
      "collected_at": {"type": "string"},
      "source_name":  {"type": "string"}
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(corpusSchema)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}
