package authoring

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/docstore"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/education"
)

// ScheduleLecture validates the form and stores a scheduled lecture. The
// passcode, if any, is stored as a bcrypt hash.
func (s *Service) ScheduleLecture(ctx context.Context, actor auth.Actor, courseID string, form education.NewLecture) (education.LiveLecture, error) {
	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return education.LiveLecture{}, err
	}
	form.MeetingURL = strings.TrimSpace(form.MeetingURL)
	if err := s.validator.Struct(form); err != nil {
		return education.LiveLecture{}, err
	}

	now := s.timestamp()
	l := education.LiveLecture{
		ID:              s.newID(),
		CourseID:        courseID,
		Title:           strings.TrimSpace(form.Title),
		Description:     strings.TrimSpace(form.Description),
		ScheduledAt:     form.ScheduledAt.UTC(),
		DurationMinutes: form.DurationMinutes,
		MeetingURL:      form.MeetingURL,
		Status:          education.LectureScheduled,
		InstructorID:    actor.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if form.Passcode != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(form.Passcode), bcrypt.DefaultCost)
		if err != nil {
			return education.LiveLecture{}, fmt.Errorf("hash passcode: %w", err)
		}
		l.PasscodeHash = string(hash)
	}

	coll := lecturesColl(courseID)
	if err := s.store.Create(ctx, coll, l.ID, l); err != nil {
		return education.LiveLecture{}, fmt.Errorf("create lecture: %w", err)
	}

	s.emit(ctx, actor, EventLectureScheduled, coll, l.ID, map[string]any{"scheduled_at": l.ScheduledAt})
	return l.Public(), nil
}

// ListLectures returns the lectures of a course ordered by start time.
// Only the course owner sees the meeting link of passcode-protected
// lectures; everyone else gets it from CheckLecturePasscode.
func (s *Service) ListLectures(ctx context.Context, actor auth.Actor, courseID string) ([]education.LiveLecture, error) {
	if err := s.courseExists(ctx, courseID); err != nil {
		return nil, err
	}

	all, err := docstore.ListAs[education.LiveLecture](ctx, s.store, lecturesColl(courseID))
	if err != nil {
		return nil, fmt.Errorf("list lectures: %w", err)
	}

	owner := s.ownsLecture(ctx, actor, courseID)
	out := make([]education.LiveLecture, 0, len(all))
	for _, l := range all {
		if !owner && l.HasPasscode() {
			l.MeetingURL = ""
		}
		out = append(out, l.Public())
	}
	sortBy(out, func(a, b education.LiveLecture) bool {
		if a.ScheduledAt.Equal(b.ScheduledAt) {
			return a.ID < b.ID
		}
		return a.ScheduledAt.Before(b.ScheduledAt)
	})
	return out, nil
}

// SetLectureStatus moves a lecture along its lifecycle.
func (s *Service) SetLectureStatus(ctx context.Context, actor auth.Actor, courseID, lectureID string, to education.LectureStatus) (education.LiveLecture, error) {
	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return education.LiveLecture{}, err
	}
	coll := lecturesColl(courseID)
	l, err := docstore.GetAs[education.LiveLecture](ctx, s.store, coll, lectureID)
	if err != nil {
		return education.LiveLecture{}, fmt.Errorf("load lecture: %w", err)
	}

	if !education.CanTransition(l.Status, to) {
		return education.LiveLecture{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.Status, to)
	}

	from := l.Status
	l.Status = to
	l.UpdatedAt = s.timestamp()
	if err := s.store.Set(ctx, coll, l.ID, l); err != nil {
		return education.LiveLecture{}, fmt.Errorf("update lecture: %w", err)
	}

	s.emit(ctx, actor, EventLectureStatusChanged, coll, l.ID, map[string]any{
		"from": string(from),
		"to":   string(to),
	})
	return l.Public(), nil
}

// CheckLecturePasscode lets an actor join an open lecture. The returned
// lecture carries the meeting link. Authors of the course skip the passcode.
func (s *Service) CheckLecturePasscode(ctx context.Context, actor auth.Actor, courseID, lectureID, passcode string) (education.LiveLecture, error) {
	l, err := docstore.GetAs[education.LiveLecture](ctx, s.store, lecturesColl(courseID), lectureID)
	if err != nil {
		return education.LiveLecture{}, fmt.Errorf("load lecture: %w", err)
	}

	if l.Status != education.LectureScheduled && l.Status != education.LectureLive {
		return education.LiveLecture{}, fmt.Errorf("%w: lecture %s is %s", ErrLectureClosed, lectureID, l.Status)
	}

	if l.HasPasscode() && !s.ownsLecture(ctx, actor, courseID) {
		err := bcrypt.CompareHashAndPassword([]byte(l.PasscodeHash), []byte(passcode))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return education.LiveLecture{}, ErrWrongPasscode
		}
		if err != nil {
			return education.LiveLecture{}, fmt.Errorf("check passcode: %w", err)
		}
	}
	return l.Public(), nil
}

func (s *Service) ownsLecture(ctx context.Context, actor auth.Actor, courseID string) bool {
	if !actor.CanAuthor() {
		return false
	}
	_, err := s.ownedCourse(ctx, actor, courseID)
	return err == nil
}
