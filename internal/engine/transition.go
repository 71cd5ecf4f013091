package engine

// Key identifies the kind of keystroke delivered to the engine.
type Key int

const (
	KeyChar Key = iota
	KeyBackspace
)

func (k Key) String() string {
	if k == KeyBackspace {
		return "backspace"
	}
	return "char"
}

// TransitionKind names the rule that handled a keystroke.
type TransitionKind int

const (
	TransitionIgnored TransitionKind = iota
	TransitionMatch
	TransitionMismatch
	TransitionSkip
	TransitionExtensionStart
	TransitionExtend
	// Backspace transitions.
	TransitionRetract
	TransitionExtensionEnd
	TransitionUnskip
	TransitionStepBack
)

var transitionNames = map[TransitionKind]string{
	TransitionIgnored:        "ignored",
	TransitionMatch:          "match",
	TransitionMismatch:       "mismatch",
	TransitionSkip:           "skip",
	TransitionExtensionStart: "extension-start",
	TransitionExtend:         "extend",
	TransitionRetract:        "retract",
	TransitionExtensionEnd:   "extension-end",
	TransitionUnskip:         "unskip",
	TransitionStepBack:       "step-back",
}

func (k TransitionKind) String() string {
	if name, ok := transitionNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseTransitionKind maps a name produced by String back to its kind.
func ParseTransitionKind(name string) (TransitionKind, bool) {
	for kind, n := range transitionNames {
		if n == name {
			return kind, true
		}
	}
	return TransitionIgnored, false
}

// Transition describes how one keystroke moved the engine.
type Transition struct {
	Key  Key
	Char byte
	Kind TransitionKind
	From int
	To   int
}

// Counts tallies the classification currently held by the engine.
type Counts struct {
	Typed      int
	Correct    int
	Mismatches int
	Skipped    int
	Extensions int
	Inserted   int
}

// Accuracy returns the share of typed positions that are correct.
func (c Counts) Accuracy() float64 {
	if c.Typed == 0 {
		return 0
	}
	return float64(c.Correct) / float64(c.Typed)
}
