// Package main generates JSON schemas for the JSON forms of parse trees
// and diagnostic records.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/Sumatoshi-tech/hoshi/pkg/ast"
	"github.com/Sumatoshi-tech/hoshi/pkg/diag"
)

const (
	draft07 = "https://json-schema.org/draft-07/schema#"

	dirPerm  = 0o755
	filePerm = 0o644
)

var errNotStruct = errors.New("schema root must be a struct")

// Schema represents a JSON Schema.
type Schema struct {
	Schema      string             `json:"$schema,omitempty"`
	Title       string             `json:"title,omitempty"`
	Description string             `json:"description,omitempty"`
	Type        string             `json:"type,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Ref         string             `json:"$ref,omitempty"`
	Definitions map[string]*Schema `json:"definitions,omitempty"`
}

// target is one generated schema file.
type target struct {
	name        string
	title       string
	description string
	value       any
}

func targets() []target {
	return []target{
		{"ast-node", "Parse Tree Node", "JSON form of a decoded parse tree", &ast.Node{}},
		{"diag-record", "Diagnostic Record", "JSON form of one engine diagnostic", &diag.Record{}},
	}
}

func main() {
	var outputDir string

	flag.StringVar(&outputDir, "o", "docs/schemas", "Output directory for schemas")
	flag.Parse()

	err := run(outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(outputDir string) error {
	err := os.MkdirAll(outputDir, dirPerm)
	if err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	for _, tgt := range targets() {
		schema, genErr := generateSchema(tgt)
		if genErr != nil {
			return fmt.Errorf("%s: %w", tgt.name, genErr)
		}

		writeErr := writeSchema(outputDir, tgt.name, schema)
		if writeErr != nil {
			return fmt.Errorf("write schema for %s: %w", tgt.name, writeErr)
		}

		fmt.Fprintf(os.Stdout, "Generated schema for %s\n", tgt.name)
	}

	return nil
}

// generateSchema describes tgt.value. Named structs live in definitions so
// recursive types such as tree nodes terminate.
func generateSchema(tgt target) (*Schema, error) {
	typ := reflect.TypeOf(tgt.value)
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}

	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", errNotStruct, typ)
	}

	defs := make(map[string]*Schema)
	typeToSchema(typ, defs)

	root := defs[typ.Name()]

	schema := &Schema{
		Schema:      draft07,
		Title:       tgt.title,
		Description: tgt.description,
		Type:        "object",
		Properties:  root.Properties,
		Required:    root.Required,
		Definitions: defs,
	}

	return schema, nil
}

func structToProperties(typ reflect.Type, defs map[string]*Schema) (map[string]*Schema, []string) {
	props := make(map[string]*Schema)

	var required []string

	for i := range typ.NumField() {
		field := typ.Field(i)
		jsonTag := field.Tag.Get("json")

		if jsonTag == "-" || jsonTag == "" {
			continue
		}

		parts := strings.Split(jsonTag, ",")
		jsonName := parts[0]
		isOmitempty := len(parts) > 1 && parts[1] == "omitempty"

		props[jsonName] = typeToSchema(field.Type, defs)

		if !isOmitempty {
			required = append(required, jsonName)
		}
	}

	return props, required
}

func typeToSchema(typ reflect.Type, defs map[string]*Schema) *Schema {
	switch typ.Kind() {
	case reflect.String:
		return &Schema{Type: "string"}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}

	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}

	case reflect.Bool:
		return &Schema{Type: "boolean"}

	case reflect.Slice:
		return &Schema{Type: "array", Items: typeToSchema(typ.Elem(), defs)}

	case reflect.Struct:
		defName := typ.Name()
		if defName == "" {
			props, required := structToProperties(typ, defs)

			return &Schema{Type: "object", Properties: props, Required: required}
		}

		if _, exists := defs[defName]; !exists {
			def := &Schema{Type: "object"}
			defs[defName] = def
			def.Properties, def.Required = structToProperties(typ, defs)
		}

		return &Schema{Ref: "#/definitions/" + defName}

	case reflect.Ptr:
		return typeToSchema(typ.Elem(), defs)

	default:
		return &Schema{Type: "object"}
	}
}

func writeSchema(outputDir, name string, schema *Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	path := filepath.Join(outputDir, name+".json")

	return os.WriteFile(path, data, filePerm) //nolint:wrapcheck // caller names the schema.
}
