package service

import (
	"context"
	"log"
	"time"

	"github.com/centinela-pi/centinela/internal/centinela/store"
)

// recordEvent persists a security event.  Errors are intentionally not
// returned to the caller — a failed audit write should not prevent the
// operation whose outcome is already decided from completing.  The failure
// is logged so it is never silent.
func recordEvent(ctx context.Context, es store.SecurityEventStore, logger *log.Logger, rec store.SecurityEventRecord) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, err := es.Append(ctx, rec); err != nil {
		logger.Printf("event log write failed (%s): %v", rec.Type, err)
	}
}
