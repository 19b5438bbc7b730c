package models

import "fmridesign/pkg/design"

// Event is a single stimulus presentation within a run
type Event struct {
	// Onset is the start time of the event in seconds from the run start
	Onset float64

	// Duration is the length of the event in seconds
	Duration float64

	// Stim names the condition; one regressor is built per distinct name
	Stim string

	// Weight scales the regressor while the event is on (parametric
	// modulation). Only used when HasWeight is set.
	Weight float64

	// HasWeight reports whether the source carried a weight for this event
	HasWeight bool
}

// Offset returns the time the event ends
func (e Event) Offset() float64 {
	return e.Onset + e.Duration
}

// Run is one scanning session built into a design matrix
type Run struct {
	// Index is the position of the run in acquisition order
	Index int

	// Name identifies the run in logs and stored records
	Name string

	// Design is the run's finished design matrix
	Design *design.Matrix
}
