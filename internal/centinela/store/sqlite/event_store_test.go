package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/centinela-pi/centinela/internal/centinela/store"
	sqlitestore "github.com/centinela-pi/centinela/internal/centinela/store/sqlite"
)

// ═══════════════════════════════════════════════════════════════════════════
// Append — basic insert
// ═══════════════════════════════════════════════════════════════════════════

func TestSecurityEventStore_Append_InsertsRow(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	es := sqlitestore.NewSecurityEventStore(conn, w)

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	actor := int64(42)

	id, err := es.Append(context.Background(), store.SecurityEventRecord{
		Type:        store.EventCommandExecuted,
		Description: "uptime exit=0",
		ActorID:     &actor,
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id <= 0 {
		t.Errorf("expected positive id, got %d", id)
	}

	var count int
	err = conn.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM security_events`,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 security_event row, got %d", count)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Append — column values
// ═══════════════════════════════════════════════════════════════════════════

func TestSecurityEventStore_Append_ColumnsCorrect(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	es := sqlitestore.NewSecurityEventStore(conn, w)

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	actor := int64(7)

	id, err := es.Append(context.Background(), store.SecurityEventRecord{
		Type:        store.EventMotionDetected,
		Description: "motion detected",
		PhotoPath:   "media/motion_abc.jpg",
		ActorID:     &actor,
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	var (
		eventType string
		desc      string
		photo     sql.NullString
		actorID   sql.NullInt64
		createdMs int64
	)
	err = conn.QueryRowContext(context.Background(), `
SELECT event_type, description, photo_path, actor_id, created_at_ms
FROM security_events WHERE id = ?`, id,
	).Scan(&eventType, &desc, &photo, &actorID, &createdMs)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if eventType != "motion_detected" {
		t.Errorf("expected event_type=motion_detected, got %q", eventType)
	}
	if desc != "motion detected" {
		t.Errorf("expected description=motion detected, got %q", desc)
	}
	if !photo.Valid || photo.String != "media/motion_abc.jpg" {
		t.Errorf("expected photo_path=media/motion_abc.jpg, got %v", photo)
	}
	if !actorID.Valid || actorID.Int64 != 7 {
		t.Errorf("expected actor_id=7, got %v", actorID)
	}
	if createdMs != now.UnixMilli() {
		t.Errorf("expected created_at_ms=%d, got %d", now.UnixMilli(), createdMs)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Append — nullable fields
// ═══════════════════════════════════════════════════════════════════════════

func TestSecurityEventStore_Append_NullOptionalFields(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	es := sqlitestore.NewSecurityEventStore(conn, w)

	// Scheduler-originated event: no actor, no photo.
	id, err := es.Append(context.Background(), store.SecurityEventRecord{
		Type:        store.EventTaskFailed,
		Description: "task 3 rejected by whitelist",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	var (
		photo   sql.NullString
		actorID sql.NullInt64
	)
	err = conn.QueryRowContext(context.Background(), `
SELECT photo_path, actor_id FROM security_events WHERE id = ?`, id,
	).Scan(&photo, &actorID)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if photo.Valid {
		t.Error("expected photo_path to be NULL")
	}
	if actorID.Valid {
		t.Error("expected actor_id to be NULL")
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Append — append-only, ids strictly increasing
// ═══════════════════════════════════════════════════════════════════════════

func TestSecurityEventStore_Append_AppendOnly(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	es := sqlitestore.NewSecurityEventStore(conn, w)
	ctx := context.Background()

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	var prevID int64
	for i := 0; i < 5; i++ {
		id, err := es.Append(ctx, store.SecurityEventRecord{
			Type:        store.EventCommandExecuted,
			Description: "uptime exit=0",
			CreatedAt:   now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
		if id <= prevID {
			t.Errorf("expected strictly increasing ids, got %d after %d", id, prevID)
		}
		prevID = id
	}

	var count int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM security_events`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 5 {
		t.Errorf("expected 5 rows (append-only), got %d", count)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Append — fields unchanged on re-read
// ═══════════════════════════════════════════════════════════════════════════

func TestSecurityEventStore_Append_RoundTripUnchanged(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	es := sqlitestore.NewSecurityEventStore(conn, w)
	ctx := context.Background()

	now := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)
	actor := int64(42)
	rec := store.SecurityEventRecord{
		Type:        store.EventUnauthorizedAccess,
		Description: "operator 99 denied",
		ActorID:     &actor,
		CreatedAt:   now,
	}

	id, err := es.Append(ctx, rec)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	events, err := es.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	ev := events[0]
	if ev.ID != id {
		t.Errorf("expected id=%d, got %d", id, ev.ID)
	}
	if ev.Type != rec.Type {
		t.Errorf("expected type=%s, got %s", rec.Type, ev.Type)
	}
	if ev.Description != rec.Description {
		t.Errorf("expected description=%q, got %q", rec.Description, ev.Description)
	}
	if ev.ActorID == nil || *ev.ActorID != actor {
		t.Errorf("expected actor_id=%d, got %v", actor, ev.ActorID)
	}
	if !ev.CreatedAt.Equal(now) {
		t.Errorf("expected created_at=%v, got %v", now, ev.CreatedAt)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Recent — newest first, bounded
// ═══════════════════════════════════════════════════════════════════════════

func TestSecurityEventStore_Recent_NewestFirst(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	es := sqlitestore.NewSecurityEventStore(conn, w)
	ctx := context.Background()

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		_, err := es.Append(ctx, store.SecurityEventRecord{
			Type:        store.EventCommandExecuted,
			Description: string(rune('a' + i)),
			CreatedAt:   now.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	events, err := es.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Description != "d" || events[1].Description != "c" {
		t.Errorf("expected newest first (d, c), got (%s, %s)",
			events[0].Description, events[1].Description)
	}
}
