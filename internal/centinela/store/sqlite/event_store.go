package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/centinela-pi/centinela/internal/db"

	"github.com/centinela-pi/centinela/internal/centinela/store"
)

// SecurityEventStore persists security events as an append-only audit log.
type SecurityEventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewSecurityEventStore(db *sql.DB, writer *dbpkg.Worker) *SecurityEventStore {
	return &SecurityEventStore{db: db, writer: writer}
}

func (s *SecurityEventStore) Append(ctx context.Context, rec store.SecurityEventRecord) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	createdMs := rec.CreatedAt.UTC().UnixMilli()

	var photoPath any
	if rec.PhotoPath != "" {
		photoPath = rec.PhotoPath
	}

	var actorID any
	if rec.ActorID != nil {
		actorID = *rec.ActorID
	}

	var id int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO security_events(event_type, description, photo_path, actor_id, created_at_ms)
VALUES (?, ?, ?, ?, ?);
`, string(rec.Type), rec.Description, photoPath, actorID, createdMs)
		if err != nil {
			return fmt.Errorf("Append insert: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("Append last insert id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *SecurityEventStore) Recent(ctx context.Context, limit int) ([]store.SecurityEvent, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, event_type, description, photo_path, actor_id, created_at_ms
FROM security_events
ORDER BY id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("Recent query: %w", err)
	}
	defer rows.Close()

	var out []store.SecurityEvent
	for rows.Next() {
		var (
			ev        store.SecurityEvent
			eventType string
			photoPath sql.NullString
			actorID   sql.NullInt64
			createdMs int64
		)
		if err := rows.Scan(&ev.ID, &eventType, &ev.Description, &photoPath, &actorID, &createdMs); err != nil {
			return nil, fmt.Errorf("Recent scan: %w", err)
		}
		ev.Type = store.EventType(eventType)
		if photoPath.Valid {
			ev.PhotoPath = photoPath.String
		}
		if actorID.Valid {
			v := actorID.Int64
			ev.ActorID = &v
		}
		ev.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Recent rows: %w", err)
	}
	return out, nil
}
