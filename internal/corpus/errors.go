package corpus

import "errors"

// ErrExtractionEmpty means chunking produced zero chunks; the ingest is
// aborted and the corpus left unmodified.
var ErrExtractionEmpty = errors.New("no chunks extracted from document")

// ErrDimensionMismatch means a persisted corpus was written with a different
// embedding dimensionality than the active provider. Fatal at load time;
// requires operator intervention.
var ErrDimensionMismatch = errors.New("corpus dimensionality mismatch")
