package payform

// Mode is the widget layout a fill ran against.
type Mode int

const (
	ModeNotFound Mode = iota
	ModeUnified
	ModeSplit
)

func (m Mode) String() string {
	switch m {
	case ModeUnified:
		return "unified"
	case ModeSplit:
		return "split"
	default:
		return "not_found"
	}
}

// Outcome is the result of filling one field.
type Outcome int

const (
	Failed Outcome = iota
	Succeeded
	FallbackUsed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case FallbackUsed:
		return "fallback_used"
	default:
		return "failed"
	}
}

// OK reports whether the field holds an accepted value.
func (o Outcome) OK() bool {
	return o == Succeeded || o == FallbackUsed
}

// FillResult is built once per Fill call. Fields that were not attempted
// (blank or absent postal code, NotFound mode) have no entry in Outcomes.
type FillResult struct {
	RunID    string
	Mode     Mode
	Outcomes map[FieldName]Outcome
	Errors   map[FieldName]error
}

func newResult(runID string) FillResult {
	return FillResult{
		RunID:    runID,
		Mode:     ModeNotFound,
		Outcomes: make(map[FieldName]Outcome),
		Errors:   make(map[FieldName]error),
	}
}

func (r *FillResult) record(name FieldName, o Outcome, err error) {
	r.Outcomes[name] = o
	if err != nil {
		r.Errors[name] = err
	}
}

// FallbackUsed reports whether the field needed native typing. Frequent
// fallbacks on a field point at a widget that started ignoring DOM events.
func (r FillResult) FallbackUsed(name FieldName) bool {
	return r.Outcomes[name] == FallbackUsed
}

// OK reports whether a layout was found and every attempted field holds an
// accepted value.
func (r FillResult) OK() bool {
	if r.Mode == ModeNotFound {
		return false
	}
	for _, o := range r.Outcomes {
		if !o.OK() {
			return false
		}
	}
	return true
}
