package httpapi

import (
	"net/http"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/education"
)

func (s *Server) listCourses(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	courses, err := s.svc.ListCourses(r.Context(), actor)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, courses)
	return nil
}

func (s *Server) createCourse(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	var form education.NewCourse
	if err := decodeJSON(w, r, &form); err != nil {
		return err
	}
	course, err := s.svc.CreateCourse(r.Context(), actor, form)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusCreated, course, "Course %q created", course.Title)
}

func (s *Server) getCourse(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	course, err := s.svc.GetCourse(r.Context(), actor, r.PathValue("courseID"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, course)
	return nil
}

func (s *Server) updateCourse(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	var patch education.UpdateCourse
	if err := decodeJSON(w, r, &patch); err != nil {
		return err
	}
	course, err := s.svc.UpdateCourse(r.Context(), actor, r.PathValue("courseID"), patch)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, course, "Course saved")
}
