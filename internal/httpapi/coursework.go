package httpapi

import (
	"net/http"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/authoring"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/education"
)

func (s *Server) listAssignments(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	list, err := s.svc.ListAssignments(r.Context(), actor, r.PathValue("courseID"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

func (s *Server) createAssignment(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	var form education.NewAssignment
	if err := decodeJSON(w, r, &form); err != nil {
		return err
	}
	a, err := s.svc.CreateAssignment(r.Context(), actor, r.PathValue("courseID"), form)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusCreated, a, "Assignment %q created", a.Title)
}

func (s *Server) getAssignment(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	a, err := s.svc.GetAssignment(r.Context(), actor, r.PathValue("courseID"), r.PathValue("assignmentID"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, a)
	return nil
}

func (s *Server) updateAssignment(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	var patch education.UpdateAssignment
	if err := decodeJSON(w, r, &patch); err != nil {
		return err
	}
	a, err := s.svc.UpdateAssignment(r.Context(), actor, r.PathValue("courseID"), r.PathValue("assignmentID"), patch)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, a, "Assignment saved")
}

func (s *Server) deleteAssignment(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	if err := s.svc.DeleteAssignment(r.Context(), actor, r.PathValue("courseID"), r.PathValue("assignmentID")); err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, nil, "Assignment deleted")
}

func (s *Server) listContent(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	items, err := s.svc.ListContent(r.Context(), actor, r.PathValue("courseID"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, items)
	return nil
}

func (s *Server) createContent(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	var form education.NewContentItem
	if err := decodeJSON(w, r, &form); err != nil {
		return err
	}
	item, err := s.svc.CreateContentItem(r.Context(), actor, r.PathValue("courseID"), form)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusCreated, item, "Content %q created", item.Title)
}

func (s *Server) updateContent(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	var form education.NewContentItem
	if err := decodeJSON(w, r, &form); err != nil {
		return err
	}
	item, err := s.svc.UpdateContentItem(r.Context(), actor, r.PathValue("courseID"), r.PathValue("itemID"), form)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, item, "Content saved")
}

func (s *Server) deleteContent(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	if err := s.svc.DeleteContentItem(r.Context(), actor, r.PathValue("courseID"), r.PathValue("itemID")); err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, nil, "Content deleted")
}

func (s *Server) listLectures(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	list, err := s.svc.ListLectures(r.Context(), actor, r.PathValue("courseID"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

func (s *Server) scheduleLecture(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	var form education.NewLecture
	if err := decodeJSON(w, r, &form); err != nil {
		return err
	}
	l, err := s.svc.ScheduleLecture(r.Context(), actor, r.PathValue("courseID"), form)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusCreated, l, "Lecture %q scheduled", l.Title)
}

type statusRequest struct {
	Status education.LectureStatus `json:"status"`
}

func (s *Server) setLectureStatus(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	l, err := s.svc.SetLectureStatus(r.Context(), actor, r.PathValue("courseID"), r.PathValue("lectureID"), req.Status)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, l, "Lecture is now %s", l.Status)
}

type joinRequest struct {
	Passcode string `json:"passcode"`
}

func (s *Server) joinLecture(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	var req joinRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
	}
	l, err := s.svc.CheckLecturePasscode(r.Context(), actor, r.PathValue("courseID"), r.PathValue("lectureID"), req.Passcode)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, l, "Joining %q", l.Title)
}

func (s *Server) generateQuestions(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	var req authoring.GenerateQuestionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	drafts, err := s.svc.GenerateQuestions(r.Context(), actor, req)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, drafts, "Generated %d draft questions", len(drafts.Questions))
}

func (s *Server) generateContent(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	var req authoring.GenerateContentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	draft, err := s.svc.GenerateContent(r.Context(), actor, req)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, draft, "Draft %q generated", draft.Item.Title)
}
