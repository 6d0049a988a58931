// Package botapi routes operator chat commands to the controller services.
// It is transport-agnostic: any messaging frontend that can deliver
// (operator id, text) pairs and send replies back can drive it, so typed
// commands and voice-transcribed ones take the same path.
package botapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/centinela-pi/centinela/internal/centinela/service"
	"github.com/centinela-pi/centinela/internal/centinela/store"
	"github.com/centinela-pi/centinela/internal/centinela/types"
	"github.com/centinela-pi/centinela/internal/sysinfo"
)

// recentEventsLimit bounds the /events listing.
const recentEventsLimit = 15

// Camera captures one still frame, returning the written file path.
type Camera interface {
	Capture(ctx context.Context) (string, error)
}

type Dependencies struct {
	Logger    *log.Logger
	Auth      *service.Authorizer
	Executor  *service.Executor
	Scheduler *service.Scheduler
	Motion    *service.Motion
	GPIO      *service.GPIO
	System    *service.System
	Events    store.SecurityEventStore
	Camera    Camera                        // nil disables /photo
	Status    func() (sysinfo.Stats, error) // nil disables /status
}

// Router parses one command per incoming message and dispatches it.
type Router struct {
	logger    *log.Logger
	auth      *service.Authorizer
	executor  *service.Executor
	scheduler *service.Scheduler
	motion    *service.Motion
	gpio      *service.GPIO
	system    *service.System
	events    store.SecurityEventStore
	camera    Camera
	status    func() (sysinfo.Stats, error)
}

func NewRouter(d Dependencies) *Router {
	return &Router{
		logger:    d.Logger,
		auth:      d.Auth,
		executor:  d.Executor,
		scheduler: d.Scheduler,
		motion:    d.Motion,
		gpio:      d.GPIO,
		system:    d.System,
		events:    d.Events,
		camera:    d.Camera,
		status:    d.Status,
	}
}

// Handle processes one operator message and returns the reply.  The
// authorization gate runs before any parsing: an unknown sender gets the
// same denial no matter what they typed.
func (r *Router) Handle(ctx context.Context, msg types.Incoming) types.Reply {
	if err := r.auth.Authorize(ctx, msg.OperatorID); err != nil {
		return types.Reply{Text: "Access denied."}
	}

	text := strings.TrimSpace(msg.Text)
	cmd, rest := splitCommand(text)

	switch cmd {
	case "/run":
		return r.handleRun(ctx, msg.OperatorID, rest)
	case "/schedule":
		return r.handleSchedule(ctx, msg.OperatorID, rest)
	case "/tasks":
		return r.handleTasks(ctx)
	case "/cancel":
		return r.handleCancel(ctx, msg.OperatorID, rest)
	case "/gpio":
		return r.handleGPIO(ctx, msg.OperatorID, rest)
	case "/status":
		return r.handleStatus()
	case "/photo":
		return r.handlePhoto(ctx)
	case "/motion":
		return r.handleMotion(ctx, msg.OperatorID, rest)
	case "/events":
		return r.handleEvents(ctx)
	case "/reboot":
		return r.handleReboot(ctx, msg.OperatorID, rest)
	case "/help", "/start":
		return types.Reply{Text: helpText}
	default:
		return types.Reply{Text: "Unknown command. Send /help for the list."}
	}
}

// splitCommand separates the leading /command from the raw remainder.  The
// remainder is not re-tokenized: /run arguments must reach the whitelist
// check byte-for-byte as typed.
func splitCommand(text string) (cmd, rest string) {
	if i := strings.IndexByte(text, ' '); i >= 0 {
		return text[:i], strings.TrimSpace(text[i+1:])
	}
	return text, ""
}

func (r *Router) handleRun(ctx context.Context, operatorID int64, command string) types.Reply {
	if command == "" {
		return types.Reply{Text: "Usage: /run <command>"}
	}

	res, err := r.executor.Execute(ctx, service.ExecRequest{Command: command, Actor: &operatorID})
	switch {
	case errors.Is(err, service.ErrCommandNotWhitelisted):
		return types.Reply{Text: fmt.Sprintf("Command not allowed: %s", command)}
	case errors.Is(err, service.ErrCommandSpawnFailed):
		return types.Reply{Text: fmt.Sprintf("Command failed to start: %v", err)}
	case err != nil:
		r.logger.Printf("/run %q: %v", command, err)
		return types.Reply{Text: "Internal error running command."}
	}
	return types.Reply{Text: renderExecution(command, res)}
}

func (r *Router) handleSchedule(ctx context.Context, operatorID int64, rest string) types.Reply {
	// /schedule HH:MM command with args
	timeSpec, command := splitCommand(rest)
	hour, minute, ok := parseClock(timeSpec)
	if !ok || command == "" {
		return types.Reply{Text: "Usage: /schedule HH:MM <command>"}
	}

	task, whitelisted, err := r.scheduler.Schedule(ctx, operatorID, command, hour, minute)
	switch {
	case errors.Is(err, service.ErrInvalidSchedule):
		return types.Reply{Text: "Usage: /schedule HH:MM <command>"}
	case err != nil:
		r.logger.Printf("/schedule: %v", err)
		return types.Reply{Text: "Internal error scheduling task."}
	}

	reply := fmt.Sprintf("Task %d scheduled: %q daily at %02d:%02d.", task.ID, task.Command, task.FireHour, task.FireMinute)
	if !whitelisted {
		reply += "\nWarning: this command is not whitelisted and will be rejected when it fires."
	}
	return types.Reply{Text: reply}
}

func (r *Router) handleTasks(ctx context.Context) types.Reply {
	tasks, err := r.scheduler.ListActive(ctx)
	if err != nil {
		r.logger.Printf("/tasks: %v", err)
		return types.Reply{Text: "Internal error listing tasks."}
	}
	return types.Reply{Text: renderTasks(tasks)}
}

func (r *Router) handleCancel(ctx context.Context, operatorID int64, rest string) types.Reply {
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return types.Reply{Text: "Usage: /cancel <task id>"}
	}

	err = r.scheduler.Cancel(ctx, id, operatorID)
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		return types.Reply{Text: fmt.Sprintf("No active task with id %d.", id)}
	case errors.Is(err, service.ErrTaskOwnershipMismatch):
		return types.Reply{Text: fmt.Sprintf("Task %d belongs to another operator.", id)}
	case err != nil:
		r.logger.Printf("/cancel %d: %v", id, err)
		return types.Reply{Text: "Internal error cancelling task."}
	}
	return types.Reply{Text: fmt.Sprintf("Task %d cancelled.", id)}
}

func (r *Router) handleGPIO(ctx context.Context, operatorID int64, rest string) types.Reply {
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return types.Reply{Text: "Usage: /gpio <pin> on|off"}
	}
	pin, err := strconv.Atoi(fields[0])
	if err != nil {
		return types.Reply{Text: "Usage: /gpio <pin> on|off"}
	}
	var on bool
	switch strings.ToLower(fields[1]) {
	case "on":
		on = true
	case "off":
		on = false
	default:
		return types.Reply{Text: "Usage: /gpio <pin> on|off"}
	}

	label, err := r.gpio.Set(ctx, operatorID, pin, on)
	switch {
	case errors.Is(err, service.ErrUnknownPin):
		return types.Reply{Text: fmt.Sprintf("Pin %d is not configured.", pin)}
	case err != nil:
		r.logger.Printf("/gpio %d: %v", pin, err)
		return types.Reply{Text: fmt.Sprintf("Failed to switch pin %d.", pin)}
	}

	state := "off"
	if on {
		state = "on"
	}
	return types.Reply{Text: fmt.Sprintf("%s (pin %d) switched %s.", label, pin, state)}
}

func (r *Router) handleStatus() types.Reply {
	if r.status == nil {
		return types.Reply{Text: "Status reporting is not available."}
	}
	stats, err := r.status()
	if err != nil {
		r.logger.Printf("/status: %v", err)
		return types.Reply{Text: "Failed to read system status."}
	}
	return types.Reply{Text: renderStatus(stats)}
}

func (r *Router) handlePhoto(ctx context.Context) types.Reply {
	if r.camera == nil {
		return types.Reply{Text: "No camera is configured."}
	}
	path, err := r.camera.Capture(ctx)
	if err != nil {
		r.logger.Printf("/photo: %v", err)
		return types.Reply{Text: "Camera capture failed."}
	}
	return types.Reply{Text: "Here you go.", PhotoPath: path}
}

func (r *Router) handleMotion(ctx context.Context, operatorID int64, rest string) types.Reply {
	switch strings.ToLower(rest) {
	case "on":
		r.motion.SetEnabled(ctx, true, operatorID)
		return types.Reply{Text: "Motion alerts enabled."}
	case "off":
		r.motion.SetEnabled(ctx, false, operatorID)
		return types.Reply{Text: "Motion alerts disabled."}
	case "":
		if r.motion.Enabled() {
			return types.Reply{Text: "Motion alerts are enabled."}
		}
		return types.Reply{Text: "Motion alerts are disabled."}
	default:
		return types.Reply{Text: "Usage: /motion on|off"}
	}
}

func (r *Router) handleEvents(ctx context.Context) types.Reply {
	events, err := r.events.Recent(ctx, recentEventsLimit)
	if err != nil {
		r.logger.Printf("/events: %v", err)
		return types.Reply{Text: "Internal error reading the event log."}
	}
	return types.Reply{Text: renderEvents(events)}
}

func (r *Router) handleReboot(ctx context.Context, operatorID int64, rest string) types.Reply {
	// Destructive, so it requires the explicit confirm token.
	if !strings.EqualFold(rest, "confirm") {
		return types.Reply{Text: "This reboots the controller host. Send /reboot confirm to proceed."}
	}
	if err := r.system.Reboot(ctx, operatorID); err != nil {
		r.logger.Printf("/reboot: %v", err)
		return types.Reply{Text: "Reboot command failed to start."}
	}
	return types.Reply{Text: "Rebooting now."}
}

// parseClock parses strict HH:MM.
func parseClock(s string) (hour, minute int, ok bool) {
	h, m, found := strings.Cut(s, ":")
	if !found || len(h) == 0 || len(m) != 2 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(m)
	if err != nil {
		return 0, 0, false
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

const helpText = `Commands:
/run <cmd> - run a whitelisted command
/schedule HH:MM <cmd> - run a command daily at HH:MM
/tasks - list scheduled tasks
/cancel <id> - cancel one of your tasks
/gpio <pin> on|off - switch a configured pin
/status - host health
/photo - capture a still frame
/motion on|off - toggle motion alerts
/events - recent security events
/reboot confirm - reboot the host
/help - this list`
