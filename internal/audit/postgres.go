package audit

import (
	"context"
	"database/sql"
	"fmt"

	id "certverify/pkg/domain"

	"github.com/google/uuid"
)

// Postgres persists audit events in the audit_events table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (occurred_at, owner_id, subject, action, detail)
		VALUES ($1, $2, $3, $4, $5)`,
		event.OccurredAt, uuid.UUID(event.OwnerID), event.Subject, event.Action, event.Detail,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Postgres) ListByOwner(ctx context.Context, ownerID id.OwnerID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT occurred_at, owner_id, subject, action, detail
		FROM audit_events
		WHERE owner_id = $1
		ORDER BY seq ASC`,
		uuid.UUID(ownerID),
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e     Event
			owner uuid.UUID
		)
		if err := rows.Scan(&e.OccurredAt, &owner, &e.Subject, &e.Action, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.OwnerID = id.OwnerID(owner)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
