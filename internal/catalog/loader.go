// Package catalog loads seed courses and quizzes from YAML files on disk.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	courseSuffix = ".course.yaml"
	quizSuffix   = ".quiz.yaml"
	notesSuffix  = ".notes.md"
)

// Catalog holds the seed content found under a directory.
type Catalog struct {
	rootDir string
	courses map[string]Course
	quizzes map[string]Quiz
	notes   map[string]string // course id -> markdown
	mu      sync.RWMutex
}

// Load walks rootDir for *.course.yaml, *.quiz.yaml and *.notes.md files.
// Files that fail to parse are skipped with a warning.
func Load(rootDir string) (*Catalog, error) {
	if _, err := os.Stat(rootDir); err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	c := &Catalog{
		rootDir: rootDir,
		courses: make(map[string]Course),
		quizzes: make(map[string]Quiz),
		notes:   make(map[string]string),
	}

	if err := c.loadAll(); err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	slog.Info("catalog loaded", "dir", rootDir, "courses", len(c.courses), "quizzes", len(c.quizzes))
	return c, nil
}

// Course returns a course by id.
func (c *Catalog) Course(id string) (Course, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	course, ok := c.courses[id]
	return course, ok
}

// Notes returns the markdown notes attached to a course.
func (c *Catalog) Notes(courseID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.notes[courseID]
	return n, ok
}

// Courses returns every course ordered by id.
func (c *Catalog) Courses() []Course {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Course, 0, len(c.courses))
	for _, course := range c.courses {
		out = append(out, course)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Quizzes returns every quiz ordered by id.
func (c *Catalog) Quizzes() []Quiz {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Quiz, 0, len(c.quizzes))
	for _, q := range c.quizzes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Catalog) loadAll() error {
	return filepath.WalkDir(c.rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}

		switch {
		case strings.HasSuffix(path, courseSuffix):
			return c.loadCourse(path)
		case strings.HasSuffix(path, quizSuffix):
			return c.loadQuiz(path)
		case strings.HasSuffix(path, notesSuffix):
			return c.loadNotes(path)
		}
		return nil
	})
}

func (c *Catalog) loadCourse(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var course Course
	if err := yaml.Unmarshal(data, &course); err != nil {
		slog.Warn("skipping invalid course YAML", "path", path, "error", err)
		return nil
	}
	if course.ID == "" {
		slog.Warn("skipping course YAML without id", "path", path)
		return nil
	}

	c.mu.Lock()
	c.courses[course.ID] = course
	c.mu.Unlock()
	return nil
}

func (c *Catalog) loadQuiz(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var quiz Quiz
	if err := yaml.Unmarshal(data, &quiz); err != nil {
		slog.Warn("skipping invalid quiz YAML", "path", path, "error", err)
		return nil
	}
	if quiz.ID == "" || quiz.CourseID == "" {
		slog.Warn("skipping quiz YAML without id or course_id", "path", path)
		return nil
	}

	c.mu.Lock()
	c.quizzes[quiz.ID] = quiz
	c.mu.Unlock()
	return nil
}

// loadNotes attaches foo.notes.md to the course declared in foo.course.yaml.
func (c *Catalog) loadNotes(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	coursePath := strings.TrimSuffix(path, notesSuffix) + courseSuffix
	courseData, err := os.ReadFile(coursePath)
	if err != nil {
		return nil
	}

	var partial struct {
		ID string `yaml:"id"`
	}
	if err := yaml.Unmarshal(courseData, &partial); err != nil || partial.ID == "" {
		return nil
	}

	c.mu.Lock()
	c.notes[partial.ID] = string(data)
	c.mu.Unlock()
	return nil
}
