package engine

// State is the lifecycle state of one handle.
type State int

// Handle states. A handle starts Invalid; generate moves it to GrammarBad
// or GrammarGood and parse from there to SourceBad or SourceGood.
const (
	StateInvalid State = iota
	StateGrammarBad
	StateGrammarGood
	StateSourceBad
	StateSourceGood
)

var stateNames = [...]string{
	StateInvalid:     "invalid",
	StateGrammarBad:  "grammar_bad",
	StateGrammarGood: "grammar_good",
	StateSourceBad:   "source_bad",
	StateSourceGood:  "source_good",
}

func (st State) String() string {
	if st < 0 || int(st) >= len(stateNames) {
		return "unknown"
	}

	return stateNames[st]
}

// GrammarLoaded reports whether a compiled grammar is available.
func (st State) GrammarLoaded() bool {
	return st == StateGrammarGood || st == StateSourceBad || st == StateSourceGood
}

// stateSet is a bit set of states an operation accepts.
type stateSet uint8

func statesOf(states ...State) stateSet {
	var set stateSet

	for _, st := range states {
		set |= 1 << st
	}

	return set
}

func (set stateSet) has(st State) bool {
	return set&(1<<st) != 0
}

var (
	anyState      = statesOf(StateInvalid, StateGrammarBad, StateGrammarGood, StateSourceBad, StateSourceGood)
	grammarStates = statesOf(StateGrammarGood, StateSourceBad, StateSourceGood)
	kindStates    = statesOf(StateInvalid, StateGrammarGood, StateSourceBad, StateSourceGood)
	diagStates    = statesOf(StateGrammarBad, StateGrammarGood, StateSourceBad, StateSourceGood)
	treeStates    = statesOf(StateSourceGood)
)
