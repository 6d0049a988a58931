// Package sysinfo takes a read-only snapshot of host health for the
// /status report.  Everything here is best-effort: a field that cannot be
// read is left at its zero value rather than failing the whole snapshot.
package sysinfo

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// thermalZonePath is the Pi SoC temperature in millidegrees Celsius.
const thermalZonePath = "/sys/class/thermal/thermal_zone0/temp"

// Stats is one host health snapshot.
type Stats struct {
	Uptime      time.Duration
	Load1       float64
	MemTotal    uint64 // bytes
	MemFree     uint64 // bytes
	DiskTotal   uint64 // bytes, root filesystem
	DiskFree    uint64 // bytes, root filesystem
	CPUTempC    float64
	HasCPUTemp  bool
	LocalIP     string
	CollectedAt time.Time
}

// Collect gathers the snapshot via sysinfo(2)/statfs(2) plus sysfs.
func Collect() (Stats, error) {
	var s Stats
	s.CollectedAt = time.Now().UTC()

	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return s, fmt.Errorf("sysinfo: %w", err)
	}
	s.Uptime = time.Duration(si.Uptime) * time.Second
	// Loads are fixed-point with a 16-bit fractional part.
	s.Load1 = float64(si.Loads[0]) / 65536.0
	unit := uint64(si.Unit)
	if unit == 0 {
		unit = 1
	}
	s.MemTotal = uint64(si.Totalram) * unit
	s.MemFree = uint64(si.Freeram) * unit

	var fs unix.Statfs_t
	if err := unix.Statfs("/", &fs); err == nil {
		s.DiskTotal = fs.Blocks * uint64(fs.Bsize)
		s.DiskFree = fs.Bavail * uint64(fs.Bsize)
	}

	if raw, err := os.ReadFile(thermalZonePath); err == nil {
		if milli, err := strconv.Atoi(strings.TrimSpace(string(raw))); err == nil {
			s.CPUTempC = float64(milli) / 1000.0
			s.HasCPUTemp = true
		}
	}

	s.LocalIP = localIP()
	return s, nil
}

// localIP returns the first non-loopback IPv4 address, or empty.
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if v4 := ipnet.IP.To4(); v4 != nil {
			return v4.String()
		}
	}
	return ""
}
