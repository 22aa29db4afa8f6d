package authoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/docstore"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/education"
)

// CreateAssignment validates the form and stores an unpublished assignment.
func (s *Service) CreateAssignment(ctx context.Context, actor auth.Actor, courseID string, form education.NewAssignment) (education.Assignment, error) {
	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return education.Assignment{}, err
	}
	if err := s.validator.Struct(form); err != nil {
		return education.Assignment{}, err
	}

	now := s.timestamp()
	a := education.Assignment{
		ID:                  s.newID(),
		CourseID:            courseID,
		Title:               strings.TrimSpace(form.Title),
		Description:         strings.TrimSpace(form.Description),
		Instructions:        strings.TrimSpace(form.Instructions),
		DueDate:             form.DueDate.UTC(),
		MaxPoints:           form.MaxPoints,
		SubmissionType:      form.SubmissionType,
		AllowLateSubmission: form.AllowLateSubmission,
		LatePenaltyPercent:  form.LatePenaltyPercent,
		Attachments:         form.Attachments,
		CreatedBy:           actor.ID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if !a.AllowLateSubmission {
		a.LatePenaltyPercent = 0
	}

	coll := assignmentsColl(courseID)
	if err := s.store.Create(ctx, coll, a.ID, a); err != nil {
		return education.Assignment{}, fmt.Errorf("create assignment: %w", err)
	}

	s.emit(ctx, actor, EventAssignmentCreated, coll, a.ID, map[string]any{"due_date": a.DueDate})
	return a, nil
}

// GetAssignment returns an assignment. Students only see published ones.
func (s *Service) GetAssignment(ctx context.Context, actor auth.Actor, courseID, assignmentID string) (education.Assignment, error) {
	a, err := docstore.GetAs[education.Assignment](ctx, s.store, assignmentsColl(courseID), assignmentID)
	if err != nil {
		return education.Assignment{}, fmt.Errorf("get assignment: %w", err)
	}
	if !actor.CanAuthor() && !a.IsPublished {
		return education.Assignment{}, fmt.Errorf("get assignment: %w: %s", docstore.ErrNotFound, assignmentID)
	}
	return *a, nil
}

// ListAssignments returns the assignments of a course ordered by due date.
func (s *Service) ListAssignments(ctx context.Context, actor auth.Actor, courseID string) ([]education.Assignment, error) {
	if err := s.courseExists(ctx, courseID); err != nil {
		return nil, err
	}

	all, err := docstore.ListAs[education.Assignment](ctx, s.store, assignmentsColl(courseID))
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	out := []education.Assignment{}
	for _, a := range all {
		if actor.CanAuthor() || a.IsPublished {
			out = append(out, a)
		}
	}
	sortBy(out, func(a, b education.Assignment) bool {
		if a.DueDate.Equal(b.DueDate) {
			return a.ID < b.ID
		}
		return a.DueDate.Before(b.DueDate)
	})
	return out, nil
}

// UpdateAssignment applies the non-nil fields of patch. The due date must be
// in the future only when it changes.
func (s *Service) UpdateAssignment(ctx context.Context, actor auth.Actor, courseID, assignmentID string, patch education.UpdateAssignment) (education.Assignment, error) {
	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return education.Assignment{}, err
	}
	coll := assignmentsColl(courseID)
	a, err := docstore.GetAs[education.Assignment](ctx, s.store, coll, assignmentID)
	if err != nil {
		return education.Assignment{}, fmt.Errorf("load assignment: %w", err)
	}

	if patch.DueDate != nil && patch.DueDate.Equal(a.DueDate) {
		err = s.validator.StructExcept(patch, "DueDate")
	} else {
		err = s.validator.Struct(patch)
	}
	if err != nil {
		return education.Assignment{}, err
	}

	if patch.Title != nil {
		a.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		a.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Instructions != nil {
		a.Instructions = strings.TrimSpace(*patch.Instructions)
	}
	if patch.DueDate != nil {
		a.DueDate = patch.DueDate.UTC()
	}
	if patch.MaxPoints != nil {
		a.MaxPoints = *patch.MaxPoints
	}
	if patch.SubmissionType != nil {
		a.SubmissionType = *patch.SubmissionType
	}
	if patch.AllowLateSubmission != nil {
		a.AllowLateSubmission = *patch.AllowLateSubmission
	}
	if patch.LatePenaltyPercent != nil {
		a.LatePenaltyPercent = *patch.LatePenaltyPercent
	}
	if patch.Attachments != nil {
		a.Attachments = patch.Attachments
	}
	if patch.IsPublished != nil {
		a.IsPublished = *patch.IsPublished
	}
	if !a.AllowLateSubmission {
		a.LatePenaltyPercent = 0
	}
	a.UpdatedAt = s.timestamp()

	if err := s.store.Set(ctx, coll, a.ID, a); err != nil {
		return education.Assignment{}, fmt.Errorf("update assignment: %w", err)
	}

	s.emit(ctx, actor, EventAssignmentUpdated, coll, a.ID, nil)
	return *a, nil
}

// DeleteAssignment removes an assignment.
func (s *Service) DeleteAssignment(ctx context.Context, actor auth.Actor, courseID, assignmentID string) error {
	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return err
	}
	coll := assignmentsColl(courseID)
	if err := s.store.Delete(ctx, coll, assignmentID); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	s.emit(ctx, actor, EventAssignmentDeleted, coll, assignmentID, nil)
	return nil
}
