// Package retrieval defines the shared result contract for context sources.
// Adapters report outcomes as tagged results instead of sentinel strings so
// downstream stages can branch on status without content sniffing.
package retrieval

// Status classifies the outcome of a retrieval attempt.
type Status int8

const (
	// StatusOK means the source returned usable formatted content.
	StatusOK Status = iota
	// StatusEmpty means the source responded but had nothing relevant.
	StatusEmpty
	// StatusFailed means the source could not be reached or errored.
	StatusFailed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Result is the outcome of one retrieval attempt.
type Result struct {
	Status Status
	Text   string // formatted content, set when Status is StatusOK
	Reason string // failure detail, set when Status is StatusFailed
}

// OK builds a successful result carrying formatted content.
func OK(text string) Result {
	return Result{Status: StatusOK, Text: text}
}

// Empty builds a result for a source that responded with nothing relevant.
func Empty() Result {
	return Result{Status: StatusEmpty}
}

// Failed builds a result for a source that errored.
func Failed(reason string) Result {
	return Result{Status: StatusFailed, Reason: reason}
}

// Usable reports whether the result carries content worth combining.
func (r Result) Usable() bool {
	return r.Status == StatusOK && r.Text != ""
}
