package authoring

import (
	"errors"
	"fmt"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/ai"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/docstore"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/education"
)

// Notice is the short success or failure text shown after a submit.
type Notice struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Success builds a positive notice.
func Success(format string, args ...any) Notice {
	return Notice{OK: true, Message: fmt.Sprintf(format, args...)}
}

// Failure turns an operation error into a user-facing notice. Unexpected
// errors get a generic message; details stay in the logs.
func Failure(err error) Notice {
	var verr *education.ValidationError
	switch {
	case err == nil:
		return Notice{OK: true, Message: "Saved"}
	case errors.As(err, &verr):
		if len(verr.Fields) > 0 {
			return Notice{Message: "Please fix the highlighted fields: " + verr.Fields[0].Message}
		}
		return Notice{Message: "Please fix the highlighted fields"}
	case errors.Is(err, docstore.ErrNotFound):
		return Notice{Message: "Not found"}
	case errors.Is(err, docstore.ErrAlreadyExists):
		return Notice{Message: "It already exists"}
	case errors.Is(err, ErrForbidden):
		return Notice{Message: "You do not have permission to do that"}
	case errors.Is(err, ErrInvalidTransition):
		return Notice{Message: "That status change is not allowed"}
	case errors.Is(err, ErrWrongPasscode):
		return Notice{Message: "Wrong passcode"}
	case errors.Is(err, ErrLectureClosed):
		return Notice{Message: "This lecture is no longer open"}
	case errors.Is(err, ErrUploadIDInUse):
		return Notice{Message: "That upload id is already in use, pick another"}
	case errors.Is(err, ai.ErrBudgetExceeded):
		return Notice{Message: "Daily generation limit reached, try again tomorrow"}
	case errors.Is(err, ErrGenerationUnavailable):
		return Notice{Message: "Content generation is not available"}
	case errors.Is(err, ErrInvalidDraft):
		return Notice{Message: "The generated draft was not usable, please try again"}
	default:
		return Notice{Message: "Something went wrong, please try again"}
	}
}
