package botapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/centinela-pi/centinela/internal/centinela/service"
	"github.com/centinela-pi/centinela/internal/centinela/store"
	"github.com/centinela-pi/centinela/internal/sysinfo"
)

func renderExecution(command string, res service.ExecutionResult) string {
	if res.TimedOut {
		return fmt.Sprintf("%s: timed out and was killed.", command)
	}

	var b strings.Builder
	if res.ExitCode == 0 {
		fmt.Fprintf(&b, "%s: ok", command)
	} else {
		fmt.Fprintf(&b, "%s: exit %d", command, res.ExitCode)
	}

	if out := strings.TrimSpace(res.Stdout); out != "" {
		b.WriteString("\n")
		b.WriteString(out)
	}
	if errOut := strings.TrimSpace(res.Stderr); errOut != "" {
		b.WriteString("\nstderr:\n")
		b.WriteString(errOut)
	}
	if res.Truncated {
		b.WriteString("\n[output truncated]")
	}
	return b.String()
}

func renderTasks(tasks []store.ScheduledTask) string {
	if len(tasks) == 0 {
		return "No scheduled tasks."
	}

	var b strings.Builder
	b.WriteString("Scheduled tasks:")
	for _, t := range tasks {
		fmt.Fprintf(&b, "\n%d: %q daily at %02d:%02d", t.ID, t.Command, t.FireHour, t.FireMinute)
		if t.LastFiredAt != nil {
			fmt.Fprintf(&b, " (last fired %s)", t.LastFiredAt.Format("2006-01-02 15:04"))
		}
	}
	return b.String()
}

func renderStatus(s sysinfo.Stats) string {
	var b strings.Builder
	b.WriteString("System status:")
	fmt.Fprintf(&b, "\nuptime: %s", formatUptime(s.Uptime))
	fmt.Fprintf(&b, "\nload: %.2f", s.Load1)
	fmt.Fprintf(&b, "\nmemory: %s free of %s", formatBytes(s.MemFree), formatBytes(s.MemTotal))
	if s.DiskTotal > 0 {
		fmt.Fprintf(&b, "\ndisk: %s free of %s", formatBytes(s.DiskFree), formatBytes(s.DiskTotal))
	}
	if s.HasCPUTemp {
		fmt.Fprintf(&b, "\ncpu temp: %.1f C", s.CPUTempC)
	}
	if s.LocalIP != "" {
		fmt.Fprintf(&b, "\nip: %s", s.LocalIP)
	}
	return b.String()
}

func renderEvents(events []store.SecurityEvent) string {
	if len(events) == 0 {
		return "No security events recorded."
	}

	var b strings.Builder
	b.WriteString("Recent events:")
	for _, e := range events {
		fmt.Fprintf(&b, "\n[%s] %s: %s", e.CreatedAt.Format("01-02 15:04"), e.Type, e.Description)
	}
	return b.String()
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func formatBytes(n uint64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
	)
	switch {
	case n >= gib:
		return fmt.Sprintf("%.1f GiB", float64(n)/gib)
	case n >= mib:
		return fmt.Sprintf("%.0f MiB", float64(n)/mib)
	case n >= kib:
		return fmt.Sprintf("%.0f KiB", float64(n)/kib)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
