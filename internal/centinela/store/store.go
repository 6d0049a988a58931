package store

import (
	"context"
	"errors"
	"time"
)

// EventType enumerates the security-relevant occurrences the controller
// records.  The set is open-ended; stores treat the value as opaque.
type EventType string

const (
	EventUnauthorizedAccess EventType = "unauthorized_access"
	EventCommandExecuted    EventType = "command_executed"
	EventMotionDetected     EventType = "motion_detected"
	EventFeatureToggled     EventType = "feature_toggled"
	EventSystemReboot       EventType = "system_reboot"
	EventTaskFired          EventType = "scheduled_task_fired"
	EventTaskFailed         EventType = "scheduled_task_failed"
	EventTaskScheduled      EventType = "task_scheduled"
	EventTaskCancelled      EventType = "task_cancelled"
	EventSystemStarted      EventType = "system_started"
)

// FrequencyDaily is the only supported recurrence.  The column exists so
// other kinds can be added without a schema change.
const FrequencyDaily = "daily"

// ErrTaskNotFound is returned for task ids that do not exist or are no
// longer active.
var ErrTaskNotFound = errors.New("task not found")

// SecurityEventRecord is the write-side shape of one event.  The store
// assigns the id.
type SecurityEventRecord struct {
	Type        EventType
	Description string
	PhotoPath   string // optional; empty means no captured image
	ActorID     *int64 // optional; nil for scheduler- or system-originated events
	CreatedAt   time.Time
}

// SecurityEvent is one persisted row of the audit log.
type SecurityEvent struct {
	ID          int64
	Type        EventType
	Description string
	PhotoPath   string
	ActorID     *int64
	CreatedAt   time.Time
}

// SecurityEventStore is the append-only audit log.  There is deliberately
// no update or delete operation: the log is the audit trail of record.
type SecurityEventStore interface {
	Append(ctx context.Context, rec SecurityEventRecord) (int64, error)
	Recent(ctx context.Context, limit int) ([]SecurityEvent, error)
}

// ScheduledTask is one persisted daily task.  Cancellation flips Active to
// false; rows are never deleted.
type ScheduledTask struct {
	ID          int64
	OwnerID     int64
	Command     string
	FireHour    int
	FireMinute  int
	Frequency   string
	Active      bool
	LastFiredAt *time.Time
	CreatedAt   time.Time
}

// TaskStore persists scheduled tasks.
type TaskStore interface {
	Create(ctx context.Context, t ScheduledTask) (int64, error)
	Get(ctx context.Context, id int64) (ScheduledTask, error)
	ListActive(ctx context.Context) ([]ScheduledTask, error)

	// Deactivate marks an active task cancelled.  Returns ErrTaskNotFound
	// if the id does not exist or the task is already cancelled.
	Deactivate(ctx context.Context, id int64) error

	// MarkFired records the most recent firing time.  Used by the scheduler
	// to keep the once-per-day guarantee across restarts.
	MarkFired(ctx context.Context, id int64, at time.Time) error
}
