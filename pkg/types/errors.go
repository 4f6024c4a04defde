package types

import "errors"

// Error taxonomy per spec.md §7. Each is a sentinel error so callers can
// classify with errors.Is; none of these are fatal to the process they
// surface in.
var (
	// ErrStaleSequence marks a delta that arrived before its snapshot, or
	// out of order relative to the adapter's tracked seq. The caller
	// discards the event and logs; it is never fatal.
	ErrStaleSequence = errors.New("stale sequence")

	// ErrDecode marks a wire message that failed to decode. The caller
	// drops it and logs a warning; the session is not torn down.
	ErrDecode = errors.New("decode error")

	// ErrConnectionLost marks a transport-level disconnect. The caller
	// reconnects with backoff and re-subscribes from its desired set.
	ErrConnectionLost = errors.New("connection lost")

	// ErrPersistenceSchemaMismatch marks an insert that failed because the
	// target schema is missing columns the writer assumes. The writer
	// downgrades its capability flags and retries once.
	ErrPersistenceSchemaMismatch = errors.New("persistence schema mismatch")

	// ErrPersistenceFKViolation marks a batch insert that references a
	// market row that does not yet exist. The batch is dropped, not
	// retried.
	ErrPersistenceFKViolation = errors.New("persistence foreign key violation")

	// ErrDataLoad marks a failure loading historical data for replay. This
	// one is fatal to the backtest run that requested it.
	ErrDataLoad = errors.New("data load error")

	// ErrValidation marks a bad order parameter or bad configuration.
	ErrValidation = errors.New("validation error")
)
