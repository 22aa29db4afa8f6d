package education

import (
	"strings"
	"time"
)

// NewCourse is the form for creating a course.
type NewCourse struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Category    string `json:"category" validate:"max=100"`
}

// UpdateCourse holds the fields an edit may change. Nil fields are kept.
type UpdateCourse struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Category    *string `json:"category" validate:"omitempty,max=100"`
}

// NewQuestion is the form for a single quiz question. Options are capped at
// six so a question fits the Option A..F columns of a workbook export.
type NewQuestion struct {
	Type          QuestionType `json:"type" validate:"required,oneof=multiple_choice true_false short_answer"`
	Text          string       `json:"text" validate:"notblank,max=2000"`
	Options       []string     `json:"options" validate:"max=6"`
	CorrectAnswer string       `json:"correct_answer"`
	Explanation   string       `json:"explanation" validate:"max=2000"`
	Points        int          `json:"points" validate:"min=1,max=100"`
	Difficulty    Difficulty   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

// Normalize trims free text, fills defaults and canonicalises true/false
// questions so that the options are always ["True", "False"].
func (q NewQuestion) Normalize() NewQuestion {
	q.Text = strings.TrimSpace(q.Text)
	q.CorrectAnswer = strings.TrimSpace(q.CorrectAnswer)
	q.Explanation = strings.TrimSpace(q.Explanation)

	if q.Points == 0 {
		q.Points = 1
	}
	if q.Difficulty == "" {
		q.Difficulty = Medium
	}

	switch q.Type {
	case TrueFalse:
		q.Options = []string{"True", "False"}
		switch strings.ToLower(q.CorrectAnswer) {
		case "true":
			q.CorrectAnswer = "True"
		case "false":
			q.CorrectAnswer = "False"
		}
	case ShortAnswer:
		q.Options = nil
	default:
		opts := make([]string, len(q.Options))
		for i, o := range q.Options {
			opts[i] = strings.TrimSpace(o)
		}
		q.Options = opts
	}
	return q
}

// Question builds the stored question with the given id.
func (q NewQuestion) Question(id string) Question {
	return Question{
		ID:            id,
		Type:          q.Type,
		Text:          q.Text,
		Options:       q.Options,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		Points:        q.Points,
		Difficulty:    q.Difficulty,
	}
}

// NewQuiz is the form for creating a quiz.
type NewQuiz struct {
	Title              string        `json:"title" validate:"notblank,max=200"`
	Description        string        `json:"description" validate:"max=5000"`
	TimeLimitMinutes   int           `json:"time_limit_minutes" validate:"min=0,max=600"`
	PassingScore       int           `json:"passing_score" validate:"min=0,max=100"`
	MaxAttempts        int           `json:"max_attempts" validate:"min=0,max=100"`
	ShuffleQuestions   bool          `json:"shuffle_questions"`
	ShowCorrectAnswers bool          `json:"show_correct_answers"`
	DueDate            *time.Time    `json:"due_date" validate:"omitempty,future"`
	Questions          []NewQuestion `json:"questions" validate:"max=200,dive"`
}

// UpdateQuiz holds the quiz settings an edit may change.
type UpdateQuiz struct {
	Title              *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Description        *string    `json:"description" validate:"omitempty,max=5000"`
	TimeLimitMinutes   *int       `json:"time_limit_minutes" validate:"omitempty,min=0,max=600"`
	PassingScore       *int       `json:"passing_score" validate:"omitempty,min=0,max=100"`
	MaxAttempts        *int       `json:"max_attempts" validate:"omitempty,min=0,max=100"`
	ShuffleQuestions   *bool      `json:"shuffle_questions"`
	ShowCorrectAnswers *bool      `json:"show_correct_answers"`
	DueDate            *time.Time `json:"due_date" validate:"omitempty,future"`
}

// NewAssignment is the form for creating an assignment.
type NewAssignment struct {
	Title               string         `json:"title" validate:"notblank,max=200"`
	Description         string         `json:"description" validate:"max=5000"`
	Instructions        string         `json:"instructions" validate:"max=10000"`
	DueDate             time.Time      `json:"due_date" validate:"required,future"`
	MaxPoints           int            `json:"max_points" validate:"min=1,max=1000"`
	SubmissionType      SubmissionType `json:"submission_type" validate:"required,oneof=text file both"`
	AllowLateSubmission bool           `json:"allow_late_submission"`
	LatePenaltyPercent  int            `json:"late_penalty_percent" validate:"min=0,max=100"`
	Attachments         []string       `json:"attachments" validate:"max=20,dive,weburl"`
}

// UpdateAssignment holds the assignment fields an edit may change.
type UpdateAssignment struct {
	Title               *string         `json:"title" validate:"omitempty,notblank,max=200"`
	Description         *string         `json:"description" validate:"omitempty,max=5000"`
	Instructions        *string         `json:"instructions" validate:"omitempty,max=10000"`
	DueDate             *time.Time      `json:"due_date" validate:"omitempty,future"`
	MaxPoints           *int            `json:"max_points" validate:"omitempty,min=1,max=1000"`
	SubmissionType      *SubmissionType `json:"submission_type" validate:"omitempty,oneof=text file both"`
	AllowLateSubmission *bool           `json:"allow_late_submission"`
	LatePenaltyPercent  *int            `json:"late_penalty_percent" validate:"omitempty,min=0,max=100"`
	Attachments         []string        `json:"attachments" validate:"omitempty,max=20,dive,weburl"`
	IsPublished         *bool           `json:"is_published"`
}

// NewContentItem is the form for a content item. Edits submit the full form.
type NewContentItem struct {
	Module          string      `json:"module" validate:"max=200"`
	Title           string      `json:"title" validate:"notblank,max=200"`
	Type            ContentType `json:"type" validate:"required,oneof=text video document image link"`
	Body            string      `json:"body" validate:"max=100000"`
	MediaURL        string      `json:"media_url" validate:"omitempty,weburl"`
	DurationMinutes int         `json:"duration_minutes" validate:"min=0,max=1440"`
	Order           int         `json:"order" validate:"min=0"`
	Tags            []string    `json:"tags" validate:"max=20,dive,notblank,max=50"`
	IsPublished     bool        `json:"is_published"`
}

// NewMaterial describes an upload before the bytes are stored.
type NewMaterial struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	Description string `json:"description" validate:"max=2000"`
	FileName    string `json:"file_name" validate:"notblank,max=255"`
	ContentType string `json:"content_type" validate:"required,material_type"`
	SizeBytes   int64  `json:"size_bytes" validate:"min=1"`
}

// NewLecture is the form for scheduling a live lecture.
type NewLecture struct {
	Title           string    `json:"title" validate:"notblank,max=200"`
	Description     string    `json:"description" validate:"max=5000"`
	ScheduledAt     time.Time `json:"scheduled_at" validate:"required,future"`
	DurationMinutes int       `json:"duration_minutes" validate:"min=1,max=480"`
	MeetingURL      string    `json:"meeting_url" validate:"required,weburl"`
	Passcode        string    `json:"passcode" validate:"omitempty,min=4,max=64"`
}

// MaterialContentTypes lists the MIME types accepted for uploads.
var MaterialContentTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/zip",
	"text/plain",
	"text/markdown",
	"text/csv",
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
	"audio/mpeg",
	"audio/wav",
	"video/mp4",
	"video/webm",
}
