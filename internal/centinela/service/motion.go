package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/centinela-pi/centinela/internal/centinela/store"
	"github.com/centinela-pi/centinela/internal/config"
)

// Notifier delivers outbound alerts to all operators.  Implemented by the
// messaging transport.
type Notifier interface {
	Broadcast(ctx context.Context, text string, photoPath string) error
}

// MotionSignal is one raw motion detection from the camera collaborator.
type MotionSignal struct {
	At        time.Time
	PhotoPath string // optional captured frame
}

// Motion turns raw motion signals into alert decisions.  A cooldown period
// suppresses repeat alerts so a single intrusion does not flood the
// operators.  Cooldown state lives only in memory and resets on process
// start; only this gate reads or writes it.
type Motion struct {
	cfg      *config.Store
	events   store.SecurityEventStore
	notifier Notifier
	logger   *log.Logger

	mu        sync.Mutex
	enabled   bool
	lastAlert time.Time
}

func NewMotion(cfg *config.Store, es store.SecurityEventStore, notifier Notifier, logger *log.Logger) *Motion {
	return &Motion{cfg: cfg, events: es, notifier: notifier, logger: logger}
}

// Enabled reports whether motion alerting is on.
func (m *Motion) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// SetEnabled toggles motion alerting and logs a feature_toggled event.  The
// last-alert timestamp is deliberately not reset, so flipping the feature
// off and on cannot be used to bypass the cooldown.
func (m *Motion) SetEnabled(ctx context.Context, on bool, actorID int64) {
	m.mu.Lock()
	m.enabled = on
	m.mu.Unlock()

	state := "disabled"
	if on {
		state = "enabled"
	}
	m.logger.Printf("motion detection %s by operator %d", state, actorID)
	recordEvent(ctx, m.events, m.logger, store.SecurityEventRecord{
		Type:        store.EventFeatureToggled,
		Description: fmt.Sprintf("motion detection %s", state),
		ActorID:     &actorID,
	})
}

// Signal decides whether a raw motion signal becomes an alert.  Allowed
// decisions log exactly one motion_detected event and broadcast one alert;
// suppressed decisions change nothing and log nothing.
func (m *Motion) Signal(ctx context.Context, sig MotionSignal) bool {
	now := sig.At
	if now.IsZero() {
		now = time.Now()
	}
	cooldown := m.cfg.Snapshot().MotionCooldown()

	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return false
	}
	if !m.lastAlert.IsZero() && now.Sub(m.lastAlert) < cooldown {
		m.mu.Unlock()
		return false
	}
	m.lastAlert = now
	m.mu.Unlock()

	// Event write and broadcast happen outside the lock.  The cooldown
	// stamp is already taken, so a concurrent signal cannot double-alert.
	m.logger.Printf("motion detected at %s", now.Format(time.RFC3339))
	recordEvent(ctx, m.events, m.logger, store.SecurityEventRecord{
		Type:        store.EventMotionDetected,
		Description: "motion detected",
		PhotoPath:   sig.PhotoPath,
	})

	if m.notifier != nil {
		alert := fmt.Sprintf("SECURITY ALERT: motion detected at %s", now.Format("2006-01-02 15:04:05"))
		if err := m.notifier.Broadcast(ctx, alert, sig.PhotoPath); err != nil {
			m.logger.Printf("motion alert broadcast failed: %v", err)
		}
	}
	return true
}
