package authoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Event types emitted after successful mutations.
const (
	EventCourseCreated        = "course_created"
	EventCourseUpdated        = "course_updated"
	EventQuizCreated          = "quiz_created"
	EventQuizUpdated          = "quiz_updated"
	EventQuestionAdded        = "question_added"
	EventQuestionRemoved      = "question_removed"
	EventQuizPublished        = "quiz_published"
	EventQuizUnpublished      = "quiz_unpublished"
	EventQuizDeleted          = "quiz_deleted"
	EventQuestionsImported    = "questions_imported"
	EventAssignmentCreated    = "assignment_created"
	EventAssignmentUpdated    = "assignment_updated"
	EventAssignmentDeleted    = "assignment_deleted"
	EventContentCreated       = "content_created"
	EventContentUpdated       = "content_updated"
	EventContentDeleted       = "content_deleted"
	EventMaterialUploaded     = "material_uploaded"
	EventMaterialDeleted      = "material_deleted"
	EventLectureScheduled     = "lecture_scheduled"
	EventLectureStatusChanged = "lecture_status_changed"
	EventDraftGenerated       = "draft_generated"
	EventCatalogSeeded        = "catalog_seeded"
)

// Event is an audit record of an authoring change.
type Event struct {
	ActorID    string
	EventType  string
	Collection string
	DocumentID string
	Data       map[string]any
	CreatedAt  time.Time
}

// EventLogger defines event logging behavior.
type EventLogger interface {
	LogEvent(ctx context.Context, event Event) error
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(context.Context, Event) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{
		events: []Event{},
	}
}

func (l *MemoryEventLogger) LogEvent(_ context.Context, event Event) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

// Events returns a copy of the recorded events.
func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// Types returns the recorded event types in order.
func (l *MemoryEventLogger) Types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, e := range l.events {
		out[i] = e.EventType
	}
	return out
}

// PostgresEventLogger inserts events into the authoring_events table.
type PostgresEventLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLogger(pool *pgxpool.Pool) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool}
}

func (l *PostgresEventLogger) LogEvent(ctx context.Context, event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.Collection == "" || event.DocumentID == "" {
		return fmt.Errorf("collection and document_id are required")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dbTimeout)
	defer cancel()

	_, err = l.pool.Exec(ctx,
		`INSERT INTO authoring_events (actor_id, event_type, collection, document_id, data, created_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
		event.ActorID,
		event.EventType,
		event.Collection,
		event.DocumentID,
		string(data),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged",
		"type", event.EventType,
		"collection", event.Collection,
		"document_id", event.DocumentID,
		"actor_id", event.ActorID,
	)
	return nil
}
