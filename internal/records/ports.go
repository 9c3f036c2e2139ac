package records

import (
	"context"

	"acvcharts/internal/core"
)

// Ports for inbound record adapters.
type (
	// Source loads the current batch of won-opportunity records. Records are
	// returned in source order; that order drives the quarter order of the
	// aggregate.
	Source interface {
		LoadRecords(ctx context.Context) ([]core.RawRecord, error)
		// Name identifies the source in logs and cache keys.
		Name() string
	}

	// Writer replaces the stored batch. Only SQL storage implements it.
	Writer interface {
		ReplaceRecords(ctx context.Context, recs []core.RawRecord, progress func(int)) error
	}

	// Pinger reports whether the backing store is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
