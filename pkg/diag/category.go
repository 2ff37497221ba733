// Package diag holds diagnostic records: their categories and severities,
// the ordered list codec used across the engine boundary, the engine-side
// collector with its error and warning counters, and the text renderings of
// records against their source.
package diag

import "fmt"

// Category classifies a diagnostic.
type Category int

// Diagnostic categories. The numeric values are part of the wire format.
const (
	CategoryError Category = iota
	CategoryWarning
	CategoryUnknownMacro
	CategoryDupGrammarOption
	CategoryDupToken
	CategoryDupTokenOption
	CategoryUnusedTerm
	CategoryUndefinedNonterm
	CategoryUnusedNonterm
	CategoryUselessNonterm
	CategoryUselessRule
	CategoryReadsCycle
	CategorySymbolSelfProduce
	CategoryLalrConflict
	CategoryWordOverflow
	CategoryCharacterRange
	CategoryRegexConflict
	CategoryDupAstItem
	CategorySyntax
	CategoryLexical
	CategoryAstIndex
	categoryCount
)

const (
	// ErrorThreshold is the lowest severity counted as an error.
	// Anything below it is a warning.
	ErrorThreshold = 100

	// severityWarning is the severity of advisory categories.
	severityWarning = 0

	// unknownTag is the tag of a category outside the known range.
	unknownTag = "Unknown"
)

type categoryInfo struct {
	tag      string
	severity int
}

var categories = [categoryCount]categoryInfo{
	CategoryError:             {"Error", ErrorThreshold},
	CategoryWarning:           {"Warning", severityWarning},
	CategoryUnknownMacro:      {"UnknownMacro", ErrorThreshold},
	CategoryDupGrammarOption:  {"DupGrammarOption", ErrorThreshold},
	CategoryDupToken:          {"DupToken", ErrorThreshold},
	CategoryDupTokenOption:    {"DupTokenOption", ErrorThreshold},
	CategoryUnusedTerm:        {"UnusedTerm", severityWarning},
	CategoryUndefinedNonterm:  {"UndefinedNonterm", ErrorThreshold},
	CategoryUnusedNonterm:     {"UnusedNonterm", severityWarning},
	CategoryUselessNonterm:    {"UselessNonterm", ErrorThreshold},
	CategoryUselessRule:       {"UselessRule", severityWarning},
	CategoryReadsCycle:        {"ReadsCycle", ErrorThreshold},
	CategorySymbolSelfProduce: {"SymbolSelfProduce", ErrorThreshold},
	CategoryLalrConflict:      {"LalrConflict", ErrorThreshold},
	CategoryWordOverflow:      {"WordOverflow", ErrorThreshold},
	CategoryCharacterRange:    {"CharacterRange", ErrorThreshold},
	CategoryRegexConflict:     {"RegexConflict", ErrorThreshold},
	CategoryDupAstItem:        {"DupAstItem", ErrorThreshold},
	CategorySyntax:            {"Syntax", ErrorThreshold},
	CategoryLexical:           {"Lexical", ErrorThreshold},
	CategoryAstIndex:          {"AstIndex", ErrorThreshold},
}

func (cat Category) valid() bool {
	return cat >= 0 && cat < categoryCount
}

// Tag returns the short name of the category.
func (cat Category) Tag() string {
	if !cat.valid() {
		return unknownTag
	}

	return categories[cat].tag
}

// Severity returns the rank used to split errors from warnings.
// Unknown categories are treated as errors.
func (cat Category) Severity() int {
	if !cat.valid() {
		return ErrorThreshold
	}

	return categories[cat].severity
}

// String implements fmt.Stringer.
func (cat Category) String() string {
	if !cat.valid() {
		return fmt.Sprintf("%s(%d)", unknownTag, int(cat))
	}

	return categories[cat].tag
}

// IsError reports whether severity counts as an error.
func IsError(severity int) bool {
	return severity >= ErrorThreshold
}
