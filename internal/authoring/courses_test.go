package authoring_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/authoring"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/docstore"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/education"
)

func TestCreateCourse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c, err := h.svc.CreateCourse(ctx, instructor, education.NewCourse{
		Title:    "  Algebra Basics ",
		Category: "math",
	})
	if err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}
	if c.ID != "id-1" || c.Title != "Algebra Basics" || c.InstructorID != instructor.ID {
		t.Errorf("course = %+v", c)
	}
	if !c.CreatedAt.Equal(h.clock.Now()) {
		t.Errorf("CreatedAt = %v", c.CreatedAt)
	}

	got, err := h.svc.GetCourse(ctx, student, c.ID)
	if err != nil {
		t.Fatalf("GetCourse() error = %v", err)
	}
	if got.Title != "Algebra Basics" {
		t.Errorf("stored title = %q", got.Title)
	}

	if types := h.events.Types(); len(types) != 1 || types[0] != authoring.EventCourseCreated {
		t.Errorf("events = %v", types)
	}
}

func TestCreateCourse_Rejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreateCourse(ctx, instructor, education.NewCourse{Title: "   "})
	wantValidation(t, err, "title")

	_, err = h.svc.CreateCourse(ctx, student, education.NewCourse{Title: "Algebra"})
	if !errors.Is(err, authoring.ErrForbidden) {
		t.Errorf("student CreateCourse() error = %v, want ErrForbidden", err)
	}

	courses, _ := h.svc.ListCourses(ctx, instructor)
	if len(courses) != 0 {
		t.Errorf("rejected forms must not write, got %d courses", len(courses))
	}
	if len(h.events.Events()) != 0 {
		t.Error("rejected forms must not emit events")
	}
}

func TestUpdateCourse_Ownership(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.course(t, instructor)

	title := "Linear Algebra"
	patch := education.UpdateCourse{Title: &title}

	if _, err := h.svc.UpdateCourse(ctx, otherInst, c.ID, patch); !errors.Is(err, authoring.ErrForbidden) {
		t.Errorf("other instructor error = %v, want ErrForbidden", err)
	}

	updated, err := h.svc.UpdateCourse(ctx, admin, c.ID, patch)
	if err != nil {
		t.Fatalf("admin UpdateCourse() error = %v", err)
	}
	if updated.Title != "Linear Algebra" || updated.InstructorID != instructor.ID {
		t.Errorf("updated = %+v", updated)
	}

	blank := " "
	_, err = h.svc.UpdateCourse(ctx, instructor, c.ID, education.UpdateCourse{Title: &blank})
	wantValidation(t, err, "title")

	if _, err := h.svc.UpdateCourse(ctx, instructor, "missing", patch); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("missing course error = %v, want ErrNotFound", err)
	}
}

func TestFailureNotice(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "Saved"},
		{"validation", education.NewValidationError(education.FieldError{Field: "title", Message: "title cannot be blank"}), "Please fix the highlighted fields: title cannot be blank"},
		{"not found", docstore.ErrNotFound, "Not found"},
		{"forbidden", authoring.ErrForbidden, "You do not have permission to do that"},
		{"passcode", authoring.ErrWrongPasscode, "Wrong passcode"},
		{"unexpected", errors.New("connection reset"), "Something went wrong, please try again"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := authoring.Failure(tt.err)
			if got.Message != tt.want {
				t.Errorf("Failure().Message = %q, want %q", got.Message, tt.want)
			}
			if got.OK != (tt.err == nil) {
				t.Errorf("Failure().OK = %v", got.OK)
			}
		})
	}

	if n := authoring.Success("Quiz %q saved", "Week 1"); !n.OK || n.Message != `Quiz "Week 1" saved` {
		t.Errorf("Success() = %+v", n)
	}
}
