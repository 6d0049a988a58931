package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/centinela-pi/centinela/internal/db"

	"github.com/centinela-pi/centinela/internal/centinela/store"
)

// TaskStore persists scheduled tasks.  Cancellation is a state transition
// (active -> 0); rows are retained for audit.
type TaskStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewTaskStore(db *sql.DB, writer *dbpkg.Worker) *TaskStore {
	return &TaskStore{db: db, writer: writer}
}

func (s *TaskStore) Create(ctx context.Context, t store.ScheduledTask) (int64, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Frequency == "" {
		t.Frequency = store.FrequencyDaily
	}
	createdMs := t.CreatedAt.UTC().UnixMilli()

	var id int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO scheduled_tasks(owner_id, command, fire_hour, fire_minute, frequency, active, created_at_ms)
VALUES (?, ?, ?, ?, ?, 1, ?);
`, t.OwnerID, t.Command, t.FireHour, t.FireMinute, t.Frequency, createdMs)
		if err != nil {
			return fmt.Errorf("Create insert: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("Create last insert id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *TaskStore) Get(ctx context.Context, id int64) (store.ScheduledTask, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, owner_id, command, fire_hour, fire_minute, frequency, active, last_fired_at_ms, created_at_ms
FROM scheduled_tasks
WHERE id = ?;
`, id)

	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return store.ScheduledTask{}, store.ErrTaskNotFound
	}
	if err != nil {
		return store.ScheduledTask{}, fmt.Errorf("Get scan: %w", err)
	}
	return t, nil
}

func (s *TaskStore) ListActive(ctx context.Context) ([]store.ScheduledTask, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, owner_id, command, fire_hour, fire_minute, frequency, active, last_fired_at_ms, created_at_ms
FROM scheduled_tasks
WHERE active = 1
ORDER BY fire_hour, fire_minute, id;
`)
	if err != nil {
		return nil, fmt.Errorf("ListActive query: %w", err)
	}
	defer rows.Close()

	var out []store.ScheduledTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActive scan: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListActive rows: %w", err)
	}
	return out, nil
}

func (s *TaskStore) Deactivate(ctx context.Context, id int64) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE scheduled_tasks SET active = 0 WHERE id = ? AND active = 1;
`, id)
		if err != nil {
			return fmt.Errorf("Deactivate update: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("Deactivate rows affected: %w", err)
		}
		if n == 0 {
			return store.ErrTaskNotFound
		}
		return nil
	})
}

func (s *TaskStore) MarkFired(ctx context.Context, id int64, at time.Time) error {
	ms := at.UTC().UnixMilli()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE scheduled_tasks SET last_fired_at_ms = ? WHERE id = ?;
`, ms, id)
		if err != nil {
			return fmt.Errorf("MarkFired update: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("MarkFired rows affected: %w", err)
		}
		if n == 0 {
			return store.ErrTaskNotFound
		}
		return nil
	})
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (store.ScheduledTask, error) {
	var (
		t           store.ScheduledTask
		active      int
		lastFiredMs sql.NullInt64
		createdMs   int64
	)
	err := row.Scan(&t.ID, &t.OwnerID, &t.Command, &t.FireHour, &t.FireMinute,
		&t.Frequency, &active, &lastFiredMs, &createdMs)
	if err != nil {
		return store.ScheduledTask{}, err
	}
	t.Active = active == 1
	if lastFiredMs.Valid {
		v := time.UnixMilli(lastFiredMs.Int64).UTC()
		t.LastFiredAt = &v
	}
	t.CreatedAt = time.UnixMilli(createdMs).UTC()
	return t, nil
}
