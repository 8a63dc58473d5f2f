package collapse

import "errors"

var (
	// ErrInvariant reports a structural invariant break, such as a core
	// barcode reappearing as a result key. It terminates the run.
	ErrInvariant = errors.New("collapse: invariant violation")

	// ErrWorker reports a failed distance computation inside a fan-out. The
	// whole collapse call fails; no partial result is returned.
	ErrWorker = errors.New("collapse: worker failure")
)
