package service

import (
	"github.com/centinela-pi/centinela/internal/config"
)

// Guard is the command whitelist predicate.  It reads the live config
// snapshot on every call, so a hot-reloaded whitelist edit applies
// immediately — including retroactively to commands scheduled before the
// edit.
type Guard struct {
	cfg *config.Store
}

func NewGuard(cfg *config.Store) *Guard {
	return &Guard{cfg: cfg}
}

// Allowed reports whether command is a verbatim whitelist entry.
func (g *Guard) Allowed(command string) bool {
	return g.cfg.Snapshot().CommandAllowed(command)
}
