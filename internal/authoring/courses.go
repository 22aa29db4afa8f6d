package authoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/docstore"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/education"
)

// CreateCourse validates the form and stores a new course owned by actor.
func (s *Service) CreateCourse(ctx context.Context, actor auth.Actor, form education.NewCourse) (education.Course, error) {
	if err := requireAuthor(actor); err != nil {
		return education.Course{}, err
	}
	if err := s.validator.Struct(form); err != nil {
		return education.Course{}, err
	}

	now := s.timestamp()
	course := education.Course{
		ID:           s.newID(),
		Title:        strings.TrimSpace(form.Title),
		Description:  strings.TrimSpace(form.Description),
		Category:     strings.TrimSpace(form.Category),
		InstructorID: actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, collCourses, course.ID, course); err != nil {
		return education.Course{}, fmt.Errorf("create course: %w", err)
	}

	s.emit(ctx, actor, EventCourseCreated, collCourses, course.ID, map[string]any{"title": course.Title})
	return course, nil
}

// GetCourse returns a course. Any authenticated actor may read courses.
func (s *Service) GetCourse(ctx context.Context, _ auth.Actor, courseID string) (education.Course, error) {
	course, err := docstore.GetAs[education.Course](ctx, s.store, collCourses, courseID)
	if err != nil {
		return education.Course{}, fmt.Errorf("get course: %w", err)
	}
	return *course, nil
}

// ListCourses returns every course ordered by id.
func (s *Service) ListCourses(ctx context.Context, _ auth.Actor) ([]education.Course, error) {
	courses, err := docstore.ListAs[education.Course](ctx, s.store, collCourses)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// UpdateCourse applies the non-nil fields of patch.
func (s *Service) UpdateCourse(ctx context.Context, actor auth.Actor, courseID string, patch education.UpdateCourse) (education.Course, error) {
	course, err := s.ownedCourse(ctx, actor, courseID)
	if err != nil {
		return education.Course{}, err
	}
	if err := s.validator.Struct(patch); err != nil {
		return education.Course{}, err
	}

	if patch.Title != nil {
		course.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		course.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		course.Category = strings.TrimSpace(*patch.Category)
	}
	course.UpdatedAt = s.timestamp()

	if err := s.store.Set(ctx, collCourses, course.ID, course); err != nil {
		return education.Course{}, fmt.Errorf("update course: %w", err)
	}

	s.emit(ctx, actor, EventCourseUpdated, collCourses, course.ID, nil)
	return *course, nil
}
