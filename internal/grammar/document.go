// Package grammar reads grammar documents, validates them against the
// embedded schema and compiles them through a named backend.
package grammar

import (
	_ "embed"
	"fmt"
	"regexp"
	"strconv"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/hoshi/pkg/diag"
)

//go:embed grammar-schema.json
var schemaJSON []byte

var (
	schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)
	yamlLineRe   = regexp.MustCompile(`line (\d+)`)
)

// Document is a parsed grammar document.
type Document struct {
	Backend   string      `yaml:"backend"`
	Name      string      `yaml:"name"`
	Root      string      `yaml:"root"`
	Tokens    []TokenRule `yaml:"tokens"`
	Language  string      `yaml:"language"`
	NamedOnly bool        `yaml:"named_only"`

	// BackendOffset is the byte offset of the backend value.
	BackendOffset int64 `yaml:"-"`
	// LanguageOffset is the byte offset of the language value.
	LanguageOffset int64 `yaml:"-"`
}

// TokenRule is one token of a lexicon grammar.
type TokenRule struct {
	Kind    string `yaml:"kind"`
	Pattern string `yaml:"pattern"`
	Lexeme  *bool  `yaml:"lexeme"`
	Skip    bool   `yaml:"skip"`
	Open    bool   `yaml:"open"`
	Close   bool   `yaml:"close"`

	// Offset is the byte offset of the rule in the grammar text.
	Offset int64 `yaml:"-"`
}

// KeepLexeme reports whether matched text is kept on the token node.
func (rule *TokenRule) KeepLexeme() bool {
	return rule.Lexeme == nil || *rule.Lexeme
}

// ParseDocument reads grammar text. Problems are reported to sink; the
// returned document is nil when any were errors.
func ParseDocument(src *diag.Source, sink *diag.Handler) *Document {
	var root yaml.Node

	err := yaml.Unmarshal([]byte(src.Text()), &root)
	if err != nil {
		sink.Add(diag.CategorySyntax, yamlErrorOffset(src, err), "Invalid grammar document", err.Error())

		return nil
	}

	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		sink.Addf(diag.CategoryError, diag.NoLocation, "Empty grammar document")

		return nil
	}

	var generic any

	err = root.Decode(&generic)
	if err != nil {
		sink.Add(diag.CategorySyntax, diag.NoLocation, "Invalid grammar document", err.Error())

		return nil
	}

	if !validate(generic, sink) {
		return nil
	}

	var doc Document

	err = root.Decode(&doc)
	if err != nil {
		sink.Add(diag.CategorySyntax, diag.NoLocation, "Invalid grammar document", err.Error())

		return nil
	}

	locate(&doc, src, root.Content[0])

	return &doc
}

func validate(generic any, sink *diag.Handler) bool {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(generic))
	if err != nil {
		sink.Add(diag.CategoryError, diag.NoLocation, "Grammar document cannot be validated", err.Error())

		return false
	}

	for _, verr := range result.Errors() {
		sink.Add(diag.CategoryDupGrammarOption, diag.NoLocation,
			"Invalid grammar option",
			fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return result.Valid()
}

// locate records the source offsets of the values diagnostics point at.
func locate(doc *Document, src *diag.Source, mapping *yaml.Node) {
	if mapping.Kind != yaml.MappingNode {
		return
	}

	for idx := 0; idx+1 < len(mapping.Content); idx += 2 {
		key, value := mapping.Content[idx], mapping.Content[idx+1]

		switch key.Value {
		case "backend":
			doc.BackendOffset = nodeOffset(src, value)
		case "language":
			doc.LanguageOffset = nodeOffset(src, value)
		case "tokens":
			for ruleIdx, item := range value.Content {
				if ruleIdx < len(doc.Tokens) {
					doc.Tokens[ruleIdx].Offset = nodeOffset(src, item)
				}
			}
		}
	}
}

func nodeOffset(src *diag.Source, node *yaml.Node) int64 {
	return src.Offset(node.Line, node.Column)
}

// yamlErrorOffset extracts the line yaml.v3 reports in its message.
func yamlErrorOffset(src *diag.Source, err error) int64 {
	match := yamlLineRe.FindStringSubmatch(err.Error())
	if match == nil {
		return diag.NoLocation
	}

	line, convErr := strconv.Atoi(match[1])
	if convErr != nil {
		return diag.NoLocation
	}

	return src.Offset(line, 1)
}
