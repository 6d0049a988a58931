// Package camera captures still frames for /photo and motion alerts.
package camera

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FSWebcam captures frames by shelling out to fswebcam, writing uuid-named
// JPEGs under MediaDir.  It works with any V4L2 device, which covers both
// the Pi camera module (via the v4l2 driver) and USB webcams.
type FSWebcam struct {
	MediaDir   string
	Device     string        // empty means fswebcam's default
	Resolution string        // e.g. "1280x720"; empty means fswebcam's default
	Timeout    time.Duration // zero means 10s
}

// Capture takes one frame and returns the written file path.
func (c *FSWebcam) Capture(ctx context.Context) (string, error) {
	if err := os.MkdirAll(c.MediaDir, 0o755); err != nil {
		return "", fmt.Errorf("media dir: %w", err)
	}
	path := filepath.Join(c.MediaDir, uuid.NewString()+".jpg")

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"--no-banner"}
	if c.Device != "" {
		args = append(args, "-d", c.Device)
	}
	if c.Resolution != "" {
		args = append(args, "-r", c.Resolution)
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, "fswebcam", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("fswebcam: %w: %s", err, out)
	}

	// fswebcam can exit 0 without writing a frame when the device is busy.
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		os.Remove(path)
		return "", fmt.Errorf("fswebcam produced no image at %s", path)
	}
	return path, nil
}
