package authoring

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/docstore"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/education"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/sheets"
)

// maxQuestions bounds the questions of one quiz.
const maxQuestions = 200

// ImportReport summarises a spreadsheet import.
type ImportReport struct {
	Imported int               `json:"imported"`
	Errors   []sheets.RowError `json:"errors"`
}

// CreateQuiz validates the form and stores an unpublished quiz.
func (s *Service) CreateQuiz(ctx context.Context, actor auth.Actor, courseID string, form education.NewQuiz) (education.Quiz, error) {
	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return education.Quiz{}, err
	}

	for i, q := range form.Questions {
		form.Questions[i] = q.Normalize()
	}
	if err := s.validator.Struct(form); err != nil {
		return education.Quiz{}, err
	}

	now := s.timestamp()
	quiz := education.Quiz{
		ID:                 s.newID(),
		CourseID:           courseID,
		Title:              strings.TrimSpace(form.Title),
		Description:        strings.TrimSpace(form.Description),
		Questions:          make([]education.Question, 0, len(form.Questions)),
		TimeLimitMinutes:   form.TimeLimitMinutes,
		PassingScore:       form.PassingScore,
		MaxAttempts:        form.MaxAttempts,
		ShuffleQuestions:   form.ShuffleQuestions,
		ShowCorrectAnswers: form.ShowCorrectAnswers,
		DueDate:            form.DueDate,
		CreatedBy:          actor.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	for _, q := range form.Questions {
		quiz.Questions = append(quiz.Questions, q.Question(s.newID()))
	}

	if err := s.store.Create(ctx, collQuizzes, quiz.ID, quiz); err != nil {
		return education.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}

	s.emit(ctx, actor, EventQuizCreated, collQuizzes, quiz.ID, map[string]any{
		"course_id": courseID,
		"questions": len(quiz.Questions),
	})
	return quiz, nil
}

// GetQuiz returns a quiz. Students only see published quizzes, and answers
// are hidden unless the quiz shows them.
func (s *Service) GetQuiz(ctx context.Context, actor auth.Actor, quizID string) (education.Quiz, error) {
	quiz, err := docstore.GetAs[education.Quiz](ctx, s.store, collQuizzes, quizID)
	if err != nil {
		return education.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	if !actor.CanAuthor() {
		if !quiz.IsPublished {
			return education.Quiz{}, fmt.Errorf("get quiz: %w: %s/%s", docstore.ErrNotFound, collQuizzes, quizID)
		}
		return studentQuiz(*quiz), nil
	}
	return *quiz, nil
}

// ListQuizzes returns the quizzes of a course.
func (s *Service) ListQuizzes(ctx context.Context, actor auth.Actor, courseID string) ([]education.Quiz, error) {
	if err := s.courseExists(ctx, courseID); err != nil {
		return nil, err
	}

	all, err := docstore.ListAs[education.Quiz](ctx, s.store, collQuizzes)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}

	out := []education.Quiz{}
	for _, q := range all {
		if q.CourseID != courseID {
			continue
		}
		if !actor.CanAuthor() {
			if !q.IsPublished {
				continue
			}
			q = studentQuiz(q)
		}
		out = append(out, q)
	}
	return out, nil
}

// UpdateQuiz applies the non-nil settings in patch.
func (s *Service) UpdateQuiz(ctx context.Context, actor auth.Actor, quizID string, patch education.UpdateQuiz) (education.Quiz, error) {
	quiz, err := s.editableQuiz(ctx, actor, quizID)
	if err != nil {
		return education.Quiz{}, err
	}
	if err := s.validator.Struct(patch); err != nil {
		return education.Quiz{}, err
	}

	if patch.Title != nil {
		quiz.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		quiz.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.TimeLimitMinutes != nil {
		quiz.TimeLimitMinutes = *patch.TimeLimitMinutes
	}
	if patch.PassingScore != nil {
		quiz.PassingScore = *patch.PassingScore
	}
	if patch.MaxAttempts != nil {
		quiz.MaxAttempts = *patch.MaxAttempts
	}
	if patch.ShuffleQuestions != nil {
		quiz.ShuffleQuestions = *patch.ShuffleQuestions
	}
	if patch.ShowCorrectAnswers != nil {
		quiz.ShowCorrectAnswers = *patch.ShowCorrectAnswers
	}
	if patch.DueDate != nil {
		quiz.DueDate = patch.DueDate
	}

	return s.saveQuiz(ctx, actor, quiz, EventQuizUpdated, nil)
}

// AddQuestion validates one question and appends it to the quiz.
func (s *Service) AddQuestion(ctx context.Context, actor auth.Actor, quizID string, form education.NewQuestion) (education.Quiz, error) {
	quiz, err := s.editableQuiz(ctx, actor, quizID)
	if err != nil {
		return education.Quiz{}, err
	}

	form = form.Normalize()
	if err := s.validator.Struct(form); err != nil {
		return education.Quiz{}, err
	}
	if len(quiz.Questions) >= maxQuestions {
		return education.Quiz{}, education.NewValidationError(education.FieldError{
			Field:   "questions",
			Message: fmt.Sprintf("a quiz can hold at most %d questions", maxQuestions),
		})
	}

	q := form.Question(s.newID())
	quiz.Questions = append(quiz.Questions, q)
	return s.saveQuiz(ctx, actor, quiz, EventQuestionAdded, map[string]any{"question_id": q.ID})
}

// RemoveQuestion drops a question. A published quiz keeps at least one.
func (s *Service) RemoveQuestion(ctx context.Context, actor auth.Actor, quizID, questionID string) (education.Quiz, error) {
	quiz, err := s.editableQuiz(ctx, actor, quizID)
	if err != nil {
		return education.Quiz{}, err
	}

	idx := -1
	for i, q := range quiz.Questions {
		if q.ID == questionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return education.Quiz{}, fmt.Errorf("remove question: %w: question %s in quiz %s", docstore.ErrNotFound, questionID, quizID)
	}
	if quiz.IsPublished && len(quiz.Questions) == 1 {
		return education.Quiz{}, education.NewValidationError(education.FieldError{
			Field:   "questions",
			Message: "a published quiz needs at least one question",
		})
	}

	quiz.Questions = append(quiz.Questions[:idx], quiz.Questions[idx+1:]...)
	return s.saveQuiz(ctx, actor, quiz, EventQuestionRemoved, map[string]any{"question_id": questionID})
}

// PublishQuiz publishes or unpublishes a quiz. Publishing needs at least
// one question.
func (s *Service) PublishQuiz(ctx context.Context, actor auth.Actor, quizID string, publish bool) (education.Quiz, error) {
	quiz, err := s.editableQuiz(ctx, actor, quizID)
	if err != nil {
		return education.Quiz{}, err
	}
	if publish && len(quiz.Questions) == 0 {
		return education.Quiz{}, education.NewValidationError(education.FieldError{
			Field:   "questions",
			Message: "add at least one question before publishing",
		})
	}

	quiz.IsPublished = publish
	event := EventQuizPublished
	if !publish {
		event = EventQuizUnpublished
	}
	return s.saveQuiz(ctx, actor, quiz, event, nil)
}

// DeleteQuiz removes a quiz.
func (s *Service) DeleteQuiz(ctx context.Context, actor auth.Actor, quizID string) error {
	quiz, err := s.editableQuiz(ctx, actor, quizID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, collQuizzes, quiz.ID); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	s.emit(ctx, actor, EventQuizDeleted, collQuizzes, quiz.ID, map[string]any{"course_id": quiz.CourseID})
	return nil
}

// ImportQuestions appends the valid rows of an .xlsx question sheet. Rows
// that fail to parse or validate are reported and skipped; the quiz is
// written once, only if something was imported.
func (s *Service) ImportQuestions(ctx context.Context, actor auth.Actor, quizID string, r io.Reader) (education.Quiz, ImportReport, error) {
	quiz, err := s.editableQuiz(ctx, actor, quizID)
	if err != nil {
		return education.Quiz{}, ImportReport{}, err
	}

	rows, rowErrs, err := sheets.ReadQuestions(r)
	if err != nil {
		return education.Quiz{}, ImportReport{}, education.NewValidationError(education.FieldError{
			Field:   "file",
			Message: err.Error(),
		})
	}

	report := ImportReport{Errors: rowErrs}
	for _, row := range rows {
		form := row.Question.Normalize()
		if err := s.validator.Struct(form); err != nil {
			report.Errors = append(report.Errors, sheets.RowError{Row: row.Number, Message: err.Error()})
			continue
		}
		if len(quiz.Questions) >= maxQuestions {
			report.Errors = append(report.Errors, sheets.RowError{
				Row:     row.Number,
				Message: fmt.Sprintf("quiz already has %d questions", maxQuestions),
			})
			continue
		}
		quiz.Questions = append(quiz.Questions, form.Question(s.newID()))
		report.Imported++
	}
	if report.Errors == nil {
		report.Errors = []sheets.RowError{}
	}

	if report.Imported == 0 {
		return *quiz, report, nil
	}

	saved, err := s.saveQuiz(ctx, actor, quiz, EventQuestionsImported, map[string]any{
		"imported": report.Imported,
		"rejected": len(report.Errors),
	})
	if err != nil {
		return education.Quiz{}, ImportReport{}, err
	}
	return saved, report, nil
}

// ExportQuiz writes the quiz questions, answers included, as a workbook.
func (s *Service) ExportQuiz(ctx context.Context, actor auth.Actor, quizID string, w io.Writer) (education.Quiz, error) {
	quiz, err := s.editableQuiz(ctx, actor, quizID)
	if err != nil {
		return education.Quiz{}, err
	}
	if err := sheets.WriteQuiz(w, *quiz); err != nil {
		return education.Quiz{}, fmt.Errorf("export quiz: %w", err)
	}
	return *quiz, nil
}

// editableQuiz loads a quiz whose course the actor owns.
func (s *Service) editableQuiz(ctx context.Context, actor auth.Actor, quizID string) (*education.Quiz, error) {
	if err := requireAuthor(actor); err != nil {
		return nil, err
	}
	quiz, err := docstore.GetAs[education.Quiz](ctx, s.store, collQuizzes, quizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}
	if _, err := s.ownedCourse(ctx, actor, quiz.CourseID); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *Service) saveQuiz(ctx context.Context, actor auth.Actor, quiz *education.Quiz, event string, data map[string]any) (education.Quiz, error) {
	quiz.UpdatedAt = s.timestamp()
	if err := s.store.Set(ctx, collQuizzes, quiz.ID, quiz); err != nil {
		return education.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}
	s.emit(ctx, actor, event, collQuizzes, quiz.ID, data)
	return *quiz, nil
}

// studentQuiz hides answers unless the quiz is set to show them.
func studentQuiz(q education.Quiz) education.Quiz {
	if q.ShowCorrectAnswers {
		return q
	}
	questions := make([]education.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.CorrectAnswer = ""
		question.Explanation = ""
		questions[i] = question
	}
	q.Questions = questions
	return q
}
