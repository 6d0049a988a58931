package service

import (
	"context"
	"fmt"
	"log"

	"github.com/centinela-pi/centinela/internal/centinela/store"
	"github.com/centinela-pi/centinela/internal/config"
)

// Authorizer checks incoming operator identities against the configured
// authorized set.  Every denied check is itself a security event —
// authorization failures are data, not noise.
type Authorizer struct {
	cfg    *config.Store
	events store.SecurityEventStore
	logger *log.Logger
}

func NewAuthorizer(cfg *config.Store, es store.SecurityEventStore, logger *log.Logger) *Authorizer {
	return &Authorizer{cfg: cfg, events: es, logger: logger}
}

// Authorize returns ErrUnauthorized if operatorID is not in the configured
// set, logging an unauthorized_access event first.
func (a *Authorizer) Authorize(ctx context.Context, operatorID int64) error {
	if a.cfg.Snapshot().IsOperator(operatorID) {
		return nil
	}

	a.logger.Printf("unauthorized access attempt from operator %d", operatorID)
	recordEvent(ctx, a.events, a.logger, store.SecurityEventRecord{
		Type:        store.EventUnauthorizedAccess,
		Description: fmt.Sprintf("operator %d attempted access", operatorID),
		ActorID:     &operatorID,
	})
	return ErrUnauthorized
}
