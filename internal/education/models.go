// Package education defines the authored records (courses, quizzes,
// assignments, content, materials, live lectures), the form inputs used to
// create and edit them, and the validation rules applied on submit.
package education

import "time"

// QuestionType is the answer format of a quiz question.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

// Difficulty grades a question.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// SubmissionType is how students hand in an assignment.
type SubmissionType string

const (
	SubmitText SubmissionType = "text"
	SubmitFile SubmissionType = "file"
	SubmitBoth SubmissionType = "both"
)

// ContentType is the kind of a content item.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentVideo    ContentType = "video"
	ContentDocument ContentType = "document"
	ContentImage    ContentType = "image"
	ContentLink     ContentType = "link"
)

// LectureStatus is the lifecycle state of a live lecture.
type LectureStatus string

const (
	LectureScheduled LectureStatus = "scheduled"
	LectureLive      LectureStatus = "live"
	LectureEnded     LectureStatus = "ended"
	LectureCancelled LectureStatus = "cancelled"
)

// Course groups authored material.
type Course struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category,omitempty"`
	InstructorID string    `json:"instructor_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Question is a single quiz question.
type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Text          string       `json:"text"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer"`
	Explanation   string       `json:"explanation,omitempty"`
	Points        int          `json:"points"`
	Difficulty    Difficulty   `json:"difficulty"`
}

// Quiz is stored in the top-level quizzes collection and references its course.
type Quiz struct {
	ID                 string     `json:"id"`
	CourseID           string     `json:"course_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Questions          []Question `json:"questions"`
	TimeLimitMinutes   int        `json:"time_limit_minutes"`
	PassingScore       int        `json:"passing_score"`
	MaxAttempts        int        `json:"max_attempts"`
	ShuffleQuestions   bool       `json:"shuffle_questions"`
	ShowCorrectAnswers bool       `json:"show_correct_answers"`
	IsPublished        bool       `json:"is_published"`
	DueDate            *time.Time `json:"due_date,omitempty"`
	CreatedBy          string     `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TotalPoints sums the points of every question.
func (q Quiz) TotalPoints() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// Assignment is stored under courses/{id}/assignments.
type Assignment struct {
	ID                  string         `json:"id"`
	CourseID            string         `json:"course_id"`
	Title               string         `json:"title"`
	Description         string         `json:"description"`
	Instructions        string         `json:"instructions,omitempty"`
	DueDate             time.Time      `json:"due_date"`
	MaxPoints           int            `json:"max_points"`
	SubmissionType      SubmissionType `json:"submission_type"`
	AllowLateSubmission bool           `json:"allow_late_submission"`
	LatePenaltyPercent  int            `json:"late_penalty_percent"`
	Attachments         []string       `json:"attachments,omitempty"`
	IsPublished         bool           `json:"is_published"`
	CreatedBy           string         `json:"created_by"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// ContentItem is a lesson element stored under courses/{id}/content.
type ContentItem struct {
	ID              string      `json:"id"`
	CourseID        string      `json:"course_id"`
	Module          string      `json:"module,omitempty"`
	Title           string      `json:"title"`
	Type            ContentType `json:"type"`
	Body            string      `json:"body,omitempty"`
	MediaURL        string      `json:"media_url,omitempty"`
	DurationMinutes int         `json:"duration_minutes"`
	Order           int         `json:"order"`
	Tags            []string    `json:"tags,omitempty"`
	IsPublished     bool        `json:"is_published"`
	CreatedBy       string      `json:"created_by"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Material is an uploaded course file stored under courses/{id}/materials.
type Material struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	StorageKey  string    `json:"storage_key"`
	DownloadURL string    `json:"download_url"`
	UploadedBy  string    `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// LiveLecture is a scheduled session stored under courses/{id}/lectures.
type LiveLecture struct {
	ID              string        `json:"id"`
	CourseID        string        `json:"course_id"`
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	ScheduledAt     time.Time     `json:"scheduled_at"`
	DurationMinutes int           `json:"duration_minutes"`
	MeetingURL      string        `json:"meeting_url"`
	PasscodeHash    string        `json:"passcode_hash,omitempty"`
	Status          LectureStatus `json:"status"`
	InstructorID    string        `json:"instructor_id"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Public returns a copy safe to send to clients.
func (l LiveLecture) Public() LiveLecture {
	l.PasscodeHash = ""
	return l
}

// HasPasscode reports whether joining requires a passcode.
func (l LiveLecture) HasPasscode() bool {
	return l.PasscodeHash != ""
}

// CanTransition reports whether a lecture may move from one status to another.
func CanTransition(from, to LectureStatus) bool {
	switch from {
	case LectureScheduled:
		return to == LectureLive || to == LectureCancelled
	case LectureLive:
		return to == LectureEnded || to == LectureCancelled
	default:
		return false
	}
}
