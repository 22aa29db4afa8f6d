package catalog

// Course is a course definition loaded from a *.course.yaml file.
type Course struct {
	ID           string `yaml:"id"`
	Title        string `yaml:"title"`
	Description  string `yaml:"description"`
	Category     string `yaml:"category"`
	InstructorID string `yaml:"instructor_id"`
}

// Quiz is a quiz definition loaded from a *.quiz.yaml file.
type Quiz struct {
	ID                 string     `yaml:"id"`
	CourseID           string     `yaml:"course_id"`
	Title              string     `yaml:"title"`
	Description        string     `yaml:"description"`
	TimeLimitMinutes   int        `yaml:"time_limit_minutes"`
	PassingScore       int        `yaml:"passing_score"`
	MaxAttempts        int        `yaml:"max_attempts"`
	ShuffleQuestions   bool       `yaml:"shuffle_questions"`
	ShowCorrectAnswers bool       `yaml:"show_correct_answers"`
	Published          bool       `yaml:"published"`
	Questions          []Question `yaml:"questions"`
}

// Question is a quiz question inside a quiz file.
type Question struct {
	Type        string   `yaml:"type"`
	Text        string   `yaml:"text"`
	Options     []string `yaml:"options"`
	Answer      string   `yaml:"answer"`
	Explanation string   `yaml:"explanation"`
	Points      int      `yaml:"points"`
	Difficulty  string   `yaml:"difficulty"`
}
