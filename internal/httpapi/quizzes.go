package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/authoring"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/blob"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/education"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/sheets"
)

// maxSheetBytes bounds imported workbooks.
const maxSheetBytes = 10 << 20

func (s *Server) listQuizzes(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	quizzes, err := s.svc.ListQuizzes(r.Context(), actor, r.PathValue("courseID"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, quizzes)
	return nil
}

func (s *Server) createQuiz(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	var form education.NewQuiz
	if err := decodeJSON(w, r, &form); err != nil {
		return err
	}
	quiz, err := s.svc.CreateQuiz(r.Context(), actor, r.PathValue("courseID"), form)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusCreated, quiz, "Quiz %q created with %d questions", quiz.Title, len(quiz.Questions))
}

func (s *Server) getQuiz(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	quiz, err := s.svc.GetQuiz(r.Context(), actor, r.PathValue("quizID"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, quiz)
	return nil
}

func (s *Server) updateQuiz(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	var patch education.UpdateQuiz
	if err := decodeJSON(w, r, &patch); err != nil {
		return err
	}
	quiz, err := s.svc.UpdateQuiz(r.Context(), actor, r.PathValue("quizID"), patch)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, quiz, "Quiz saved")
}

func (s *Server) deleteQuiz(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	if err := s.svc.DeleteQuiz(r.Context(), actor, r.PathValue("quizID")); err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, nil, "Quiz deleted")
}

func (s *Server) addQuestion(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	var form education.NewQuestion
	if err := decodeJSON(w, r, &form); err != nil {
		return err
	}
	quiz, err := s.svc.AddQuestion(r.Context(), actor, r.PathValue("quizID"), form)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusCreated, quiz, "Question added")
}

func (s *Server) removeQuestion(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	quiz, err := s.svc.RemoveQuestion(r.Context(), actor, r.PathValue("quizID"), r.PathValue("questionID"))
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, quiz, "Question removed")
}

type publishRequest struct {
	Publish *bool `json:"publish"`
}

// publishQuiz publishes by default; {"publish": false} unpublishes.
func (s *Server) publishQuiz(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	publish := true
	if r.ContentLength != 0 {
		var req publishRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		if req.Publish != nil {
			publish = *req.Publish
		}
	}

	quiz, err := s.svc.PublishQuiz(r.Context(), actor, r.PathValue("quizID"), publish)
	if err != nil {
		return err
	}
	if publish {
		return writeResult(w, http.StatusOK, quiz, "Quiz %q published", quiz.Title)
	}
	return writeResult(w, http.StatusOK, quiz, "Quiz %q unpublished", quiz.Title)
}

func (s *Server) exportQuiz(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	var buf bytes.Buffer
	quiz, err := s.svc.ExportQuiz(r.Context(), actor, r.PathValue("quizID"), &buf)
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(blob.SafeName(quiz.Title), ".") + ".xlsx"
	w.Header().Set("Content-Type", sheets.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to write export", "quiz_id", quiz.ID, "error", err)
	}
	return nil
}

// importQuestions accepts the workbook as a multipart "file" field or as
// the raw request body.
func (s *Server) importQuestions(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxSheetBytes)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return fmt.Errorf("%w: missing file: %v", errBadRequest, err)
		}
		defer file.Close()
		src = file
	}

	quiz, report, err := s.svc.ImportQuestions(r.Context(), actor, r.PathValue("quizID"), src)
	if err != nil {
		return err
	}

	body := struct {
		Quiz   education.Quiz `json:"quiz"`
		Report any            `json:"report"`
	}{quiz, report}
	if report.Imported == 0 {
		writeJSON(w, http.StatusOK, result{
			Notice: authoring.Notice{Message: fmt.Sprintf("No questions imported, %d rows had errors", len(report.Errors))},
			Data:   body,
		})
		return nil
	}
	return writeResult(w, http.StatusOK, body, "Imported %d questions, %d rows skipped", report.Imported, len(report.Errors))
}
