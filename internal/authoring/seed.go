package authoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/catalog"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/docstore"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/education"
)

// notesItemID is the content item id used for a course's seeded notes.
const notesItemID = "notes"

var systemActor = auth.Actor{ID: "system", Role: auth.RoleAdmin}

// SeedReport counts what Seed wrote and skipped.
type SeedReport struct {
	Courses int `json:"courses"`
	Quizzes int `json:"quizzes"`
	Notes   int `json:"notes"`
	Skipped int `json:"skipped"`
	Invalid int `json:"invalid"`
}

// Seed writes the catalog's courses, quizzes and course notes. Documents
// whose id already exists are left untouched, so seeding can run on every
// start. Invalid definitions are logged and skipped.
func (s *Service) Seed(ctx context.Context, cat *catalog.Catalog) (SeedReport, error) {
	var report SeedReport

	for _, c := range cat.Courses() {
		if err := s.seedCourse(ctx, c); err != nil {
			if tally(&report, err) {
				continue
			}
			return report, err
		}
		report.Courses++
	}

	for _, c := range cat.Courses() {
		notes, ok := cat.Notes(c.ID)
		if !ok {
			continue
		}
		if err := s.seedNotes(ctx, c, notes); err != nil {
			if tally(&report, err) {
				continue
			}
			return report, err
		}
		report.Notes++
	}

	for _, q := range cat.Quizzes() {
		if err := s.seedQuiz(ctx, q); err != nil {
			if tally(&report, err) {
				if !errors.Is(err, docstore.ErrAlreadyExists) {
					slog.Warn("skipping seed quiz", "id", q.ID, "error", err)
				}
				continue
			}
			return report, err
		}
		report.Quizzes++
	}

	if report.Courses+report.Quizzes+report.Notes > 0 {
		s.emit(ctx, systemActor, EventCatalogSeeded, collCourses, "catalog", map[string]any{
			"courses": report.Courses,
			"quizzes": report.Quizzes,
			"notes":   report.Notes,
		})
	}
	slog.Info("catalog seeded",
		"courses", report.Courses,
		"quizzes", report.Quizzes,
		"notes", report.Notes,
		"skipped", report.Skipped,
		"invalid", report.Invalid,
	)
	return report, nil
}

// tally counts skippable seed errors and reports whether err was one.
func tally(r *SeedReport, err error) bool {
	var verr *education.ValidationError
	switch {
	case errors.Is(err, docstore.ErrAlreadyExists):
		r.Skipped++
		return true
	case errors.As(err, &verr), errors.Is(err, docstore.ErrNotFound), errors.Is(err, docstore.ErrInvalidPath):
		r.Invalid++
		return true
	}
	return false
}

func (s *Service) seedCourse(ctx context.Context, c catalog.Course) error {
	form := education.NewCourse{Title: c.Title, Description: c.Description, Category: c.Category}
	if err := s.validator.Struct(form); err != nil {
		slog.Warn("skipping seed course", "id", c.ID, "error", err)
		return err
	}

	instructor := c.InstructorID
	if instructor == "" {
		instructor = systemActor.ID
	}
	now := s.timestamp()
	course := education.Course{
		ID:           c.ID,
		Title:        strings.TrimSpace(c.Title),
		Description:  strings.TrimSpace(c.Description),
		Category:     strings.TrimSpace(c.Category),
		InstructorID: instructor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, collCourses, course.ID, course); err != nil {
		return fmt.Errorf("seed course %s: %w", c.ID, err)
	}
	return nil
}

func (s *Service) seedNotes(ctx context.Context, c catalog.Course, notes string) error {
	form := education.NewContentItem{
		Title:       c.Title + " notes",
		Type:        education.ContentText,
		Body:        strings.TrimSpace(notes),
		IsPublished: true,
	}
	if err := s.validator.Struct(form); err != nil {
		slog.Warn("skipping seed notes", "course_id", c.ID, "error", err)
		return err
	}

	now := s.timestamp()
	item := contentFromForm(form)
	item.ID = notesItemID
	item.CourseID = c.ID
	item.CreatedBy = systemActor.ID
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := s.store.Create(ctx, contentColl(c.ID), item.ID, item); err != nil {
		return fmt.Errorf("seed notes %s: %w", c.ID, err)
	}
	return nil
}

func (s *Service) seedQuiz(ctx context.Context, q catalog.Quiz) error {
	if err := s.courseExists(ctx, q.CourseID); err != nil {
		return err
	}

	form := education.NewQuiz{
		Title:              q.Title,
		Description:        q.Description,
		TimeLimitMinutes:   q.TimeLimitMinutes,
		PassingScore:       q.PassingScore,
		MaxAttempts:        q.MaxAttempts,
		ShuffleQuestions:   q.ShuffleQuestions,
		ShowCorrectAnswers: q.ShowCorrectAnswers,
	}
	for _, cq := range q.Questions {
		form.Questions = append(form.Questions, education.NewQuestion{
			Type:          education.QuestionType(cq.Type),
			Text:          cq.Text,
			Options:       cq.Options,
			CorrectAnswer: cq.Answer,
			Explanation:   cq.Explanation,
			Points:        cq.Points,
			Difficulty:    education.Difficulty(cq.Difficulty),
		}.Normalize())
	}
	if err := s.validator.Struct(form); err != nil {
		return err
	}

	now := s.timestamp()
	quiz := education.Quiz{
		ID:                 q.ID,
		CourseID:           q.CourseID,
		Title:              strings.TrimSpace(form.Title),
		Description:        strings.TrimSpace(form.Description),
		Questions:          make([]education.Question, 0, len(form.Questions)),
		TimeLimitMinutes:   form.TimeLimitMinutes,
		PassingScore:       form.PassingScore,
		MaxAttempts:        form.MaxAttempts,
		ShuffleQuestions:   form.ShuffleQuestions,
		ShowCorrectAnswers: form.ShowCorrectAnswers,
		IsPublished:        q.Published && len(form.Questions) > 0,
		CreatedBy:          systemActor.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	for i, nq := range form.Questions {
		quiz.Questions = append(quiz.Questions, nq.Question(fmt.Sprintf("%s-q%d", q.ID, i+1)))
	}

	if err := s.store.Create(ctx, collQuizzes, quiz.ID, quiz); err != nil {
		return fmt.Errorf("seed quiz %s: %w", q.ID, err)
	}
	return nil
}
