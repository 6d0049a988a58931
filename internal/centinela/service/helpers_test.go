package service_test

import (
	"io"
	"log"
	"testing"

	"github.com/centinela-pi/centinela/internal/centinela/store"
	"github.com/centinela-pi/centinela/internal/config"
)

func silentLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// newTestConfig builds a config store with the given operators and
// whitelist, everything else defaulted.
func newTestConfig(t *testing.T, snap config.Snapshot) *config.Store {
	t.Helper()

	if len(snap.AuthorizedOperators) == 0 {
		snap.AuthorizedOperators = []int64{42}
	}
	s, err := config.NewSnapshot(snap)
	if err != nil {
		t.Fatalf("newTestConfig: %v", err)
	}
	return config.NewStore(s)
}

// eventsOfType filters events by type.
func eventsOfType(events []store.SecurityEvent, typ store.EventType) []store.SecurityEvent {
	var out []store.SecurityEvent
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}
