package boundary

import (
	"errors"
	"fmt"
	"strings"
)

// DebugFlags selects engine tracing output.
type DebugFlags uint32

// Debug flags. Engines may ignore flags they have no tracing for.
const (
	DebugProgress DebugFlags = 1 << iota
	DebugAstHandlers
	DebugGrammar
	DebugGrammarAst
	DebugLalr
	DebugScanner
	DebugActions
	DebugICode
	DebugVCodeExec
	DebugScanToken
	DebugParseAction
)

// ErrUnknownDebugFlag is returned by ParseDebugFlags for an unknown name.
var ErrUnknownDebugFlag = errors.New("boundary: unknown debug flag")

var debugNames = []struct {
	flag DebugFlags
	name string
}{
	{DebugProgress, "progress"},
	{DebugAstHandlers, "ast_handlers"},
	{DebugGrammar, "grammar"},
	{DebugGrammarAst, "grammar_ast"},
	{DebugLalr, "lalr"},
	{DebugScanner, "scanner"},
	{DebugActions, "actions"},
	{DebugICode, "icode"},
	{DebugVCodeExec, "vcode_exec"},
	{DebugScanToken, "scan_token"},
	{DebugParseAction, "parse_action"},
}

// Has reports whether every bit of flag is set.
func (flags DebugFlags) Has(flag DebugFlags) bool {
	return flags&flag == flag
}

// String lists the set flags joined by "|".
func (flags DebugFlags) String() string {
	if flags == 0 {
		return "none"
	}

	var names []string

	for _, entry := range debugNames {
		if flags.Has(entry.flag) {
			names = append(names, entry.name)
		}
	}

	return strings.Join(names, "|")
}

// ParseDebugFlags combines flag names as used in configuration.
func ParseDebugFlags(names []string) (DebugFlags, error) {
	var flags DebugFlags

	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}

		found := false

		for _, entry := range debugNames {
			if entry.name == name {
				flags |= entry.flag
				found = true

				break
			}
		}

		if !found {
			return 0, fmt.Errorf("%w: %q", ErrUnknownDebugFlag, raw)
		}
	}

	return flags, nil
}
