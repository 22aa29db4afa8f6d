// Package authoring implements the create/edit/validate/persist workflow
// for courses, quizzes, assignments, content, materials and live lectures.
// Every mutation validates its form first and then issues a single write.
package authoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/ai"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/blob"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/docstore"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/education"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/progress"
)

var (
	// ErrForbidden is returned when the actor may not perform an operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition is returned for a lecture status change that
	// the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrWrongPasscode is returned when a lecture passcode does not match.
	ErrWrongPasscode = errors.New("wrong passcode")
	// ErrLectureClosed is returned when joining an ended or cancelled lecture.
	ErrLectureClosed = errors.New("lecture is not open")
	// ErrGenerationUnavailable is returned when no AI provider is configured.
	ErrGenerationUnavailable = errors.New("content generation is not configured")
	// ErrInvalidDraft is returned when the AI answer cannot be used.
	ErrInvalidDraft = errors.New("generated draft is invalid")
	// ErrUploadIDInUse is returned when a client-chosen upload id already
	// tracks another user's upload.
	ErrUploadIDInUse = errors.New("upload id is in use")
)

const (
	collCourses = "courses"
	collQuizzes = "quizzes"

	defaultMaxUploadBytes = 100 << 20
)

func assignmentsColl(courseID string) string {
	return docstore.Collection(collCourses, courseID, "assignments")
}

func contentColl(courseID string) string {
	return docstore.Collection(collCourses, courseID, "content")
}

func materialsColl(courseID string) string {
	return docstore.Collection(collCourses, courseID, "materials")
}

func lecturesColl(courseID string) string {
	return docstore.Collection(collCourses, courseID, "lectures")
}

// Config holds the service dependencies. Store and Blobs are required.
type Config struct {
	Store     docstore.Store
	Blobs     blob.Storage
	Progress  progress.Tracker
	AI        ai.Completer
	Budget    ai.Budget
	Events    EventLogger
	Validator *education.Validator

	MaxUploadBytes int64
	Now            func() time.Time
	NewID          func() string
}

// Service runs the authoring workflow.
type Service struct {
	store     docstore.Store
	blobs     blob.Storage
	progress  progress.Tracker
	ai        ai.Completer
	budget    ai.Budget
	events    EventLogger
	validator *education.Validator

	maxUploadBytes int64
	now            func() time.Time
	newID          func() string
}

// NewService creates a Service, filling defaults for optional dependencies.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("document store is required")
	}
	if cfg.Blobs == nil {
		return nil, fmt.Errorf("blob storage is required")
	}

	s := &Service{
		store:          cfg.Store,
		blobs:          cfg.Blobs,
		progress:       cfg.Progress,
		ai:             cfg.AI,
		budget:         cfg.Budget,
		events:         cfg.Events,
		validator:      cfg.Validator,
		maxUploadBytes: cfg.MaxUploadBytes,
		now:            cfg.Now,
		newID:          cfg.NewID,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.progress == nil {
		s.progress = progress.NewMemoryTracker().WithClock(s.now)
	}
	if s.budget == nil {
		s.budget = ai.NewMemoryBudget(0).WithClock(s.now)
	}
	if s.events == nil {
		s.events = NopEventLogger{}
	}
	if s.validator == nil {
		s.validator = education.NewValidator(s.now)
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = defaultMaxUploadBytes
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s, nil
}

// GenerationEnabled reports whether an AI provider is wired in.
func (s *Service) GenerationEnabled() bool {
	return s.ai != nil
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

func requireAuthor(actor auth.Actor) error {
	if !actor.CanAuthor() {
		return fmt.Errorf("%w: %s %s cannot author content", ErrForbidden, actor.Role, actor.ID)
	}
	return nil
}

// ownedCourse loads a course the actor may edit: admins edit every course,
// instructors only their own.
func (s *Service) ownedCourse(ctx context.Context, actor auth.Actor, courseID string) (*education.Course, error) {
	if err := requireAuthor(actor); err != nil {
		return nil, err
	}
	course, err := docstore.GetAs[education.Course](ctx, s.store, collCourses, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if !actor.IsAdmin() && course.InstructorID != actor.ID {
		return nil, fmt.Errorf("%w: course %s belongs to another instructor", ErrForbidden, courseID)
	}
	return course, nil
}

// courseExists checks the parent course for read operations.
func (s *Service) courseExists(ctx context.Context, courseID string) error {
	var c education.Course
	if err := s.store.Get(ctx, collCourses, courseID, &c); err != nil {
		return fmt.Errorf("load course: %w", err)
	}
	return nil
}

// emit records an authoring event. Failures are logged, never returned.
func (s *Service) emit(ctx context.Context, actor auth.Actor, eventType, collection, id string, data map[string]any) {
	err := s.events.LogEvent(ctx, Event{
		ActorID:    actor.ID,
		EventType:  eventType,
		Collection: collection,
		DocumentID: id,
		Data:       data,
		CreatedAt:  s.timestamp(),
	})
	if err != nil {
		slog.Warn("failed to log authoring event",
			"type", eventType,
			"collection", collection,
			"id", id,
			"error", err,
		)
	}
}
