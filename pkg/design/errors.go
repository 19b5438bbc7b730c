package design

import "errors"

// Sentinel errors returned by design matrix operations. They are returned
// directly or wrapped with fmt.Errorf("...: %w", err); match with errors.Is.
var (
	// ErrDuplicateColumns is returned when a matrix has repeated column names
	// and the operation needs unambiguous column identity.
	ErrDuplicateColumns = errors.New("design: duplicate column names")

	// ErrInvalidSamplingFreq is returned for non-positive sampling frequencies
	// and for resampling targets on the wrong side of the current frequency.
	ErrInvalidSamplingFreq = errors.New("design: invalid sampling frequency")

	// ErrSamplingFreqMismatch is returned when combining matrices sampled at
	// different frequencies.
	ErrSamplingFreqMismatch = errors.New("design: sampling frequency mismatch")

	// ErrDimensionMismatch is returned when data shape and column names or
	// operand shapes disagree.
	ErrDimensionMismatch = errors.New("design: dimension mismatch")

	// ErrUnknownColumn is returned when a named column does not exist.
	ErrUnknownColumn = errors.New("design: unknown column")

	// ErrColumnExists is returned when a generated column would overwrite an
	// existing one.
	ErrColumnExists = errors.New("design: column already exists")

	// ErrInvalidArgument is returned for out-of-range parameters.
	ErrInvalidArgument = errors.New("design: invalid argument")

	// ErrAmbiguousPolys is returned when adding trend columns to a matrix whose
	// trends were already split per run by Append.
	ErrAmbiguousPolys = errors.New("design: trend columns already separated by run")

	// ErrNonIntegerRatio is returned by Downsample when the current and target
	// frequencies are not an integer multiple of each other.
	ErrNonIntegerRatio = errors.New("design: frequency ratio is not an integer")

	// ErrEmpty is returned by operations that need at least one row.
	ErrEmpty = errors.New("design: matrix is empty")
)
