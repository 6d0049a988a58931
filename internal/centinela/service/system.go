package service

import (
	"context"
	"fmt"
	"log"
	"os/exec"

	"github.com/centinela-pi/centinela/internal/centinela/store"
	"github.com/centinela-pi/centinela/internal/config"
)

// System performs host-level actions.  Currently that is only the reboot,
// which runs the configured reboot command outside the whitelist; the
// operator confirms it explicitly at the transport layer.
type System struct {
	cfg    *config.Store
	events store.SecurityEventStore
	logger *log.Logger
}

func NewSystem(cfg *config.Store, es store.SecurityEventStore, logger *log.Logger) *System {
	return &System{cfg: cfg, events: es, logger: logger}
}

// Reboot logs a system_reboot event and starts the configured reboot
// command.  The event is written first: once the command runs, the process
// may not live long enough to write anything.
func (s *System) Reboot(ctx context.Context, actorID int64) error {
	recordEvent(ctx, s.events, s.logger, store.SecurityEventRecord{
		Type:        store.EventSystemReboot,
		Description: "system reboot requested",
		ActorID:     &actorID,
	})
	s.logger.Printf("rebooting on request of operator %d", actorID)

	cmd := exec.Command("/bin/sh", "-c", s.cfg.Snapshot().RebootCommand)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrCommandSpawnFailed, err)
	}
	// Not waited on: the host is going down.
	go func() { _ = cmd.Wait() }()
	return nil
}
