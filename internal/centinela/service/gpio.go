package service

import (
	"context"
	"fmt"
	"log"

	"github.com/centinela-pi/centinela/internal/centinela/store"
	"github.com/centinela-pi/centinela/internal/config"
)

// PinDriver abstracts the GPIO backend.  The controller only ever sets pin
// levels; pin direction, export, and hardware details belong to the driver.
type PinDriver interface {
	SetPin(pin int, high bool) error
}

// GPIO toggles configured peripherals.  Only pins present in the config
// pin map may be driven.
type GPIO struct {
	driver PinDriver
	cfg    *config.Store
	events store.SecurityEventStore
	logger *log.Logger
}

func NewGPIO(driver PinDriver, cfg *config.Store, es store.SecurityEventStore, logger *log.Logger) *GPIO {
	return &GPIO{driver: driver, cfg: cfg, events: es, logger: logger}
}

// Set drives a configured pin high or low, returning its configured label.
// Unknown pins are rejected with ErrUnknownPin before the driver is
// touched.
func (g *GPIO) Set(ctx context.Context, actorID int64, pin int, on bool) (string, error) {
	label, ok := g.cfg.Snapshot().PinLabel(pin)
	if !ok {
		return "", ErrUnknownPin
	}

	if err := g.driver.SetPin(pin, on); err != nil {
		return "", fmt.Errorf("set pin %d: %w", pin, err)
	}

	state := "off"
	if on {
		state = "on"
	}
	recordEvent(ctx, g.events, g.logger, store.SecurityEventRecord{
		Type:        store.EventFeatureToggled,
		Description: fmt.Sprintf("gpio %d (%s) switched %s", pin, label, state),
		ActorID:     &actorID,
	})
	return label, nil
}
