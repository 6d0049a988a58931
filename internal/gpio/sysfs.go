// Package gpio drives output pins through the legacy sysfs GPIO interface.
// The sysfs interface is deprecated upstream but remains the
// lowest-dependency way to flip a relay on a Pi, and it needs no cgo.
package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// SysfsDriver implements service.PinDriver against /sys/class/gpio.
// Base is overridable so tests can point it at a temp dir.
type SysfsDriver struct {
	Base string // empty means /sys/class/gpio
}

func (d *SysfsDriver) base() string {
	if d.Base != "" {
		return d.Base
	}
	return "/sys/class/gpio"
}

// SetPin exports the pin if needed, sets it to output, and writes the level.
func (d *SysfsDriver) SetPin(pin int, high bool) error {
	pinDir := filepath.Join(d.base(), fmt.Sprintf("gpio%d", pin))

	if _, err := os.Stat(pinDir); os.IsNotExist(err) {
		if err := os.WriteFile(filepath.Join(d.base(), "export"), []byte(strconv.Itoa(pin)), 0o644); err != nil {
			return fmt.Errorf("export pin %d: %w", pin, err)
		}
		// The kernel creates the pin directory asynchronously after export.
		if err := waitForDir(pinDir, time.Second); err != nil {
			return fmt.Errorf("export pin %d: %w", pin, err)
		}
	}

	if err := os.WriteFile(filepath.Join(pinDir, "direction"), []byte("out"), 0o644); err != nil {
		return fmt.Errorf("direction pin %d: %w", pin, err)
	}

	v := "0"
	if high {
		v = "1"
	}
	if err := os.WriteFile(filepath.Join(pinDir, "value"), []byte(v), 0o644); err != nil {
		return fmt.Errorf("value pin %d: %w", pin, err)
	}
	return nil
}

func waitForDir(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%s did not appear", path)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
