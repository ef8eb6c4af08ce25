package apply

import (
	"github.com/ether/lastupdated-go/lib/placeholder"
)

type Status int

const (
	Applied Status = iota
	Unchanged
	Skipped
	Deferred
	Failed
)

func (s Status) String() string {
	switch s {
	case Applied:
		return "applied"
	case Unchanged:
		return "unchanged"
	case Skipped:
		return "skipped"
	case Deferred:
		return "deferred"
	default:
		return "failed"
	}
}

// Outcome is the result of one placeholder instance in a pass.
type Outcome struct {
	LayerID string
	// Point is the override point name, empty for a layer.
	Point  string
	Token  string
	Status Status
	Value  string
	Reason string
	Err    error
}

type Report struct {
	ArtboardID string
	Kind       placeholder.Category
	Outcomes   []Outcome
}

func (r Report) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Writes is the number of mutations the pass performed.
func (r Report) Writes() int {
	return r.Count(Applied)
}
