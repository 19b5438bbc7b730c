// Package events turns stimulus onset tables into design matrices.
package events

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"fmridesign/internal/models"
	"fmridesign/pkg/design"
)

var (
	// ErrMissingColumn is returned when an onsets table lacks a required column.
	ErrMissingColumn = errors.New("events: missing column")

	// ErrInvalidEvent is returned for events with a negative or non-finite
	// onset or duration, or an empty stimulus name.
	ErrInvalidEvent = errors.New("events: invalid event")

	// ErrOutOfRange is returned when an event starts after the run has ended.
	ErrOutOfRange = errors.New("events: event outside run")
)

// Options controls how events become regressors.
type Options struct {
	// UseWeights sets each event's samples to its Weight instead of 1.
	// Events without a weight count as 1.
	UseWeights bool
}

// ReadOnsets parses a CSV table of events. The header must name Onset,
// Duration and Stim columns (any case, any order); a Weight column is
// optional. A table without a header is read as Onset, Duration, Stim.
// Times are in seconds.
func ReadOnsets(r io.Reader) ([]models.Event, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read onsets: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	idx := map[string]int{"onset": 0, "duration": 1, "stim": 2}
	weightCol := -1
	body, first := records, 1
	if _, err := strconv.ParseFloat(strings.TrimSpace(records[0][0]), 64); err != nil {
		idx, weightCol, err = headerIndex(records[0])
		if err != nil {
			return nil, err
		}
		body, first = records[1:], 2
	}

	out := make([]models.Event, 0, len(body))
	for i, rec := range body {
		ev, err := parseEvent(rec, idx, weightCol)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", first+i, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func headerIndex(header []string) (map[string]int, int, error) {
	idx := make(map[string]int, 3)
	weight := -1
	for i, h := range header {
		switch name := strings.ToLower(strings.TrimSpace(h)); name {
		case "onset", "duration", "stim":
			idx[name] = i
		case "weight":
			weight = i
		}
	}
	for _, name := range []string{"onset", "duration", "stim"} {
		if _, ok := idx[name]; !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return idx, weight, nil
}

func parseEvent(rec []string, idx map[string]int, weightCol int) (models.Event, error) {
	field := func(i int) (string, error) {
		if i >= len(rec) {
			return "", fmt.Errorf("%w: %d fields", ErrInvalidEvent, len(rec))
		}
		return strings.TrimSpace(rec[i]), nil
	}
	number := func(name string, i int) (float64, error) {
		s, err := field(i)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}

	var ev models.Event
	var err error
	if ev.Onset, err = number("onset", idx["onset"]); err != nil {
		return ev, err
	}
	if ev.Duration, err = number("duration", idx["duration"]); err != nil {
		return ev, err
	}
	if ev.Stim, err = field(idx["stim"]); err != nil {
		return ev, err
	}
	if weightCol >= 0 && weightCol < len(rec) && strings.TrimSpace(rec[weightCol]) != "" {
		if ev.Weight, err = number("weight", weightCol); err != nil {
			return ev, err
		}
		ev.HasWeight = true
	}
	return ev, validate(ev)
}

func validate(ev models.Event) error {
	switch {
	case ev.Stim == "":
		return fmt.Errorf("%w: empty stimulus name", ErrInvalidEvent)
	case ev.Onset < 0 || math.IsNaN(ev.Onset) || math.IsInf(ev.Onset, 0):
		return fmt.Errorf("%w: onset %v", ErrInvalidEvent, ev.Onset)
	case ev.Duration < 0 || math.IsNaN(ev.Duration) || math.IsInf(ev.Duration, 0):
		return fmt.Errorf("%w: duration %v", ErrInvalidEvent, ev.Duration)
	}
	return nil
}

// ToMatrix builds a runLength x stimuli design matrix with one column per
// distinct stimulus, sorted by name. An event covers samples
// round(onset*sf) up to round((onset+duration)*sf), at least one sample;
// events running past the end of the run are truncated. Overlapping events
// of the same stimulus keep the value of larger magnitude.
func ToMatrix(evs []models.Event, samplingFreq float64, runLength int, opts Options) (*design.Matrix, error) {
	if !(samplingFreq > 0) || math.IsInf(samplingFreq, 0) {
		return nil, fmt.Errorf("%w: %v", design.ErrInvalidSamplingFreq, samplingFreq)
	}
	if runLength <= 0 {
		return nil, fmt.Errorf("%w: run length %d", design.ErrInvalidArgument, runLength)
	}

	var names []string
	seen := make(map[string]int)
	for _, ev := range evs {
		if err := validate(ev); err != nil {
			return nil, err
		}
		if _, ok := seen[ev.Stim]; !ok {
			seen[ev.Stim] = 0
			names = append(names, ev.Stim)
		}
	}
	sort.Strings(names)
	for j, n := range names {
		seen[n] = j
	}

	cols := make([][]float64, len(names))
	for j := range cols {
		cols[j] = make([]float64, runLength)
	}
	for _, ev := range evs {
		first := math.Round(ev.Onset * samplingFreq)
		if !(first < float64(runLength)) {
			return nil, fmt.Errorf("%w: %s at %gs starts at sample %g of %d", ErrOutOfRange, ev.Stim, ev.Onset, first, runLength)
		}
		start := int(first)
		last := math.Min(math.Round(ev.Offset()*samplingFreq), float64(runLength))
		end := min(max(int(last), start+1), runLength)

		v := 1.0
		if opts.UseWeights && ev.HasWeight {
			v = ev.Weight
		}
		col := cols[seen[ev.Stim]]
		for i := start; i < end; i++ {
			if col[i] == 0 || math.Abs(v) > math.Abs(col[i]) {
				col[i] = v
			}
		}
	}

	if len(names) == 0 {
		return design.Empty(samplingFreq)
	}
	return design.FromColumns(cols, names, samplingFreq)
}
