package output

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/sofmeright/droidplan/src/build"
	"github.com/sofmeright/droidplan/src/buildconf"
	"github.com/sofmeright/droidplan/src/config"
)

type schemaDoc struct {
	doc func() any
	tag string // struct tag field names come from
}

var schemas = map[string]schemaDoc{
	"config":        {doc: func() any { return &config.Config{} }, tag: "yaml"},
	"configuration": {doc: func() any { return &buildconf.BuildConfiguration{} }, tag: "json"},
	"plan":          {doc: func() any { return &build.BuildPlan{} }, tag: "json"},
	"resolved":      {doc: func() any { return &Resolved{} }, tag: "json"},
}

// SchemaNames lists the documents JSONSchema can describe.
func SchemaNames() []string {
	names := make([]string, 0, len(schemas))
	for n := range schemas {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// JSONSchema generates the JSON Schema for a named document: the tool
// config file, a resolved configuration, a plan, or the full resolve output.
func JSONSchema(name string) ([]byte, error) {
	sd, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q (supported: %s)", name, strings.Join(SchemaNames(), ", "))
	}

	r := &jsonschema.Reflector{FieldNameTag: sd.tag, ExpandedStruct: true}
	s := r.Reflect(sd.doc())
	s.Title = "droidplan " + name

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return append(data, '\n'), nil
}
