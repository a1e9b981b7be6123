// Package tracking records which recommendations were shown, clicked and
// converted. It is a simple append-only log table.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/recogateway/internal/metrics"
)

// EventType is what happened to a recommended product
type EventType string

const (
	Impression EventType = "impression"
	Click      EventType = "click"
	Conversion EventType = "conversion"
)

var (
	ErrInvalidEvent = errors.New("tracking: invalid event")
	ErrUnknownType  = errors.New("tracking: unknown event type")
)

// ParseEventType validates s
func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case Impression, Click, Conversion:
		return EventType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// Event is one tracking row
type Event struct {
	ID        uuid.UUID `json:"id"`
	SubjectID string    `json:"subjectId"`
	ProductID string    `json:"productId"`
	Provider  string    `json:"provider,omitempty"`
	Type      EventType `json:"eventType"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e Event) validate() error {
	if e.SubjectID == "" || e.ProductID == "" {
		return fmt.Errorf("%w: subject and product are required", ErrInvalidEvent)
	}
	if _, err := ParseEventType(string(e.Type)); err != nil {
		return err
	}
	return nil
}

// Recorder is implemented by Store and by no-op stand-ins
type Recorder interface {
	Record(ctx context.Context, e Event) (Event, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS recommendation_events (
	id          UUID PRIMARY KEY,
	subject_id  TEXT NOT NULL,
	product_id  TEXT NOT NULL,
	provider    TEXT,
	event_type  TEXT NOT NULL CHECK (event_type IN ('impression', 'click', 'conversion')),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS recommendation_events_subject_idx ON recommendation_events (subject_id, created_at DESC);
`

// Store persists events in Postgres
type Store struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

func NewStore(db *pgxpool.Pool, logger zerolog.Logger) *Store {
	return &Store{db: db, log: logger}
}

// EnsureSchema creates the events table if it does not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create recommendation_events: %w", err)
	}
	return nil
}

// Record inserts e, assigning an id and timestamp when unset
func (s *Store) Record(ctx context.Context, e Event) (Event, error) {
	if err := e.validate(); err != nil {
		return Event{}, err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	provider := pgtype.Text{String: e.Provider, Valid: e.Provider != ""}
	_, err := s.db.Exec(ctx,
		`INSERT INTO recommendation_events (id, subject_id, product_id, provider, event_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.SubjectID, e.ProductID, provider, string(e.Type), e.CreatedAt)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", string(e.Type)).Msg("insert recommendation event failed")
		return Event{}, fmt.Errorf("insert recommendation event: %w", err)
	}

	metrics.TrackingEvents.WithLabelValues(string(e.Type)).Inc()
	return e, nil
}

// CountByType returns event counts per type for subjectID, or for all
// subjects when subjectID is empty.
func (s *Store) CountByType(ctx context.Context, subjectID string) (map[EventType]int64, error) {
	rows, err := s.db.Query(ctx,
		`SELECT event_type, count(*) FROM recommendation_events
		 WHERE ($1 = '' OR subject_id = $1)
		 GROUP BY event_type`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("count recommendation events: %w", err)
	}
	defer rows.Close()

	counts := map[EventType]int64{}
	for rows.Next() {
		var t string
		var n int64
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("scan recommendation event count: %w", err)
		}
		counts[EventType(t)] = n
	}
	return counts, rows.Err()
}

// Discard accepts and drops events. It is used when no database is configured.
type Discard struct{}

func (Discard) Record(_ context.Context, e Event) (Event, error) {
	if err := e.validate(); err != nil {
		return Event{}, err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return e, nil
}

var (
	_ Recorder = (*Store)(nil)
	_ Recorder = Discard{}
)
