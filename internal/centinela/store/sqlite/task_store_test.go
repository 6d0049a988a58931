package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/centinela-pi/centinela/internal/centinela/store"
	sqlitestore "github.com/centinela-pi/centinela/internal/centinela/store/sqlite"
)

// ═══════════════════════════════════════════════════════════════════════════
// Create / Get
// ═══════════════════════════════════════════════════════════════════════════

func TestTaskStore_Create_RoundTrip(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ts := sqlitestore.NewTaskStore(conn, w)
	ctx := context.Background()

	created := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	id, err := ts.Create(ctx, store.ScheduledTask{
		OwnerID:    42,
		Command:    "uptime",
		FireHour:   6,
		FireMinute: 0,
		CreatedAt:  created,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := ts.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.OwnerID != 42 {
		t.Errorf("expected owner_id=42, got %d", got.OwnerID)
	}
	if got.Command != "uptime" {
		t.Errorf("expected command=uptime, got %q", got.Command)
	}
	if got.FireHour != 6 || got.FireMinute != 0 {
		t.Errorf("expected fire time 06:00, got %02d:%02d", got.FireHour, got.FireMinute)
	}
	if got.Frequency != store.FrequencyDaily {
		t.Errorf("expected frequency=daily, got %q", got.Frequency)
	}
	if !got.Active {
		t.Error("expected new task to be active")
	}
	if got.LastFiredAt != nil {
		t.Error("expected last_fired_at to be unset on creation")
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("expected created_at=%v, got %v", created, got.CreatedAt)
	}
}

func TestTaskStore_Get_Unknown(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ts := sqlitestore.NewTaskStore(conn, w)

	_, err := ts.Get(context.Background(), 999)
	if !errors.Is(err, store.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// ListActive — cancelled tasks excluded, rows retained
// ═══════════════════════════════════════════════════════════════════════════

func TestTaskStore_ListActive_ExcludesCancelled(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ts := sqlitestore.NewTaskStore(conn, w)
	ctx := context.Background()

	keep, err := ts.Create(ctx, store.ScheduledTask{OwnerID: 1, Command: "uptime", FireHour: 6})
	if err != nil {
		t.Fatalf("Create keep: %v", err)
	}
	cancel, err := ts.Create(ctx, store.ScheduledTask{OwnerID: 1, Command: "df -h", FireHour: 7})
	if err != nil {
		t.Fatalf("Create cancel: %v", err)
	}

	if err := ts.Deactivate(ctx, cancel); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	active, err := ts.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 || active[0].ID != keep {
		t.Errorf("expected only task %d active, got %+v", keep, active)
	}

	// The cancelled row must still exist, just inactive.
	got, err := ts.Get(ctx, cancel)
	if err != nil {
		t.Fatalf("Get cancelled: %v", err)
	}
	if got.Active {
		t.Error("expected cancelled task to be inactive")
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Deactivate — already-cancelled and unknown ids report not found
// ═══════════════════════════════════════════════════════════════════════════

func TestTaskStore_Deactivate_AlreadyCancelled(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ts := sqlitestore.NewTaskStore(conn, w)
	ctx := context.Background()

	id, err := ts.Create(ctx, store.ScheduledTask{OwnerID: 1, Command: "uptime", FireHour: 6})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := ts.Deactivate(ctx, id); err != nil {
		t.Fatalf("first Deactivate: %v", err)
	}
	if err := ts.Deactivate(ctx, id); !errors.Is(err, store.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound for repeated cancel, got %v", err)
	}
	if err := ts.Deactivate(ctx, 999); !errors.Is(err, store.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound for unknown id, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// MarkFired
// ═══════════════════════════════════════════════════════════════════════════

func TestTaskStore_MarkFired_SetsLastFired(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	ts := sqlitestore.NewTaskStore(conn, w)
	ctx := context.Background()

	id, err := ts.Create(ctx, store.ScheduledTask{OwnerID: 1, Command: "uptime", FireHour: 6})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	fired := time.Date(2026, 8, 21, 6, 0, 0, 0, time.UTC)
	if err := ts.MarkFired(ctx, id, fired); err != nil {
		t.Fatalf("MarkFired: %v", err)
	}

	got, err := ts.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LastFiredAt == nil || !got.LastFiredAt.Equal(fired) {
		t.Errorf("expected last_fired_at=%v, got %v", fired, got.LastFiredAt)
	}
}
