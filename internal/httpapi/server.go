// Package httpapi exposes the authoring service as a JSON API over net/http.
package httpapi

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/authoring"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/blob"
)

// ReadyCheck reports whether a dependency is reachable.
type ReadyCheck func(ctx context.Context) error

// Config holds the API dependencies. Service and Issuer are required.
type Config struct {
	Service *authoring.Service
	Issuer  *auth.Issuer
	// Files serves /files/ when the blob driver keeps objects locally.
	Files blob.Opener
	// Ready maps dependency names to readiness checks for /readyz.
	Ready map[string]ReadyCheck
	// OriginPatterns are the extra websocket origins accepted for progress
	// streams, e.g. "app.example.com".
	OriginPatterns []string
	MaxUploadBytes int64
}

// Server routes API requests.
type Server struct {
	svc            *authoring.Service
	issuer         *auth.Issuer
	files          blob.Opener
	ready          map[string]ReadyCheck
	originPatterns []string
	maxUploadBytes int64
	mux            *http.ServeMux
}

// New builds the API handler.
func New(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("authoring service is required")
	}
	if cfg.Issuer == nil {
		return nil, fmt.Errorf("token issuer is required")
	}

	s := &Server{
		svc:            cfg.Service,
		issuer:         cfg.Issuer,
		files:          cfg.Files,
		ready:          cfg.Ready,
		originPatterns: cfg.OriginPatterns,
		maxUploadBytes: cfg.MaxUploadBytes,
		mux:            http.NewServeMux(),
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = 100 << 20
	}
	s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	s.mux.ServeHTTP(rec, r)

	slog.Debug("http request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)

	s.mux.Handle("GET /api/courses", s.authed(s.listCourses))
	s.mux.Handle("POST /api/courses", s.authed(s.createCourse))
	s.mux.Handle("GET /api/courses/{courseID}", s.authed(s.getCourse))
	s.mux.Handle("PUT /api/courses/{courseID}", s.authed(s.updateCourse))

	s.mux.Handle("GET /api/courses/{courseID}/quizzes", s.authed(s.listQuizzes))
	s.mux.Handle("POST /api/courses/{courseID}/quizzes", s.authed(s.createQuiz))
	s.mux.Handle("GET /api/quizzes/{quizID}", s.authed(s.getQuiz))
	s.mux.Handle("PUT /api/quizzes/{quizID}", s.authed(s.updateQuiz))
	s.mux.Handle("DELETE /api/quizzes/{quizID}", s.authed(s.deleteQuiz))
	s.mux.Handle("POST /api/quizzes/{quizID}/questions", s.authed(s.addQuestion))
	s.mux.Handle("DELETE /api/quizzes/{quizID}/questions/{questionID}", s.authed(s.removeQuestion))
	s.mux.Handle("POST /api/quizzes/{quizID}/publish", s.authed(s.publishQuiz))
	s.mux.Handle("GET /api/quizzes/{quizID}/export.xlsx", s.authed(s.exportQuiz))
	s.mux.Handle("POST /api/quizzes/{quizID}/import", s.authed(s.importQuestions))

	s.mux.Handle("GET /api/courses/{courseID}/assignments", s.authed(s.listAssignments))
	s.mux.Handle("POST /api/courses/{courseID}/assignments", s.authed(s.createAssignment))
	s.mux.Handle("GET /api/courses/{courseID}/assignments/{assignmentID}", s.authed(s.getAssignment))
	s.mux.Handle("PUT /api/courses/{courseID}/assignments/{assignmentID}", s.authed(s.updateAssignment))
	s.mux.Handle("DELETE /api/courses/{courseID}/assignments/{assignmentID}", s.authed(s.deleteAssignment))

	s.mux.Handle("GET /api/courses/{courseID}/content", s.authed(s.listContent))
	s.mux.Handle("POST /api/courses/{courseID}/content", s.authed(s.createContent))
	s.mux.Handle("PUT /api/courses/{courseID}/content/{itemID}", s.authed(s.updateContent))
	s.mux.Handle("DELETE /api/courses/{courseID}/content/{itemID}", s.authed(s.deleteContent))

	s.mux.Handle("GET /api/courses/{courseID}/materials", s.authed(s.listMaterials))
	s.mux.Handle("POST /api/courses/{courseID}/materials", s.authed(s.uploadMaterial))
	s.mux.Handle("DELETE /api/courses/{courseID}/materials/{materialID}", s.authed(s.deleteMaterial))
	s.mux.Handle("GET /api/uploads/{uploadID}", s.authed(s.getUpload))
	s.mux.Handle("GET /api/uploads/{uploadID}/ws", s.authed(s.streamUpload))

	s.mux.Handle("GET /api/courses/{courseID}/lectures", s.authed(s.listLectures))
	s.mux.Handle("POST /api/courses/{courseID}/lectures", s.authed(s.scheduleLecture))
	s.mux.Handle("POST /api/courses/{courseID}/lectures/{lectureID}/status", s.authed(s.setLectureStatus))
	s.mux.Handle("POST /api/courses/{courseID}/lectures/{lectureID}/join", s.authed(s.joinLecture))

	s.mux.Handle("POST /api/generate/questions", s.authed(s.generateQuestions))
	s.mux.Handle("POST /api/generate/content", s.authed(s.generateContent))

	if s.files != nil {
		s.mux.HandleFunc("GET /files/{key...}", s.serveFile)
	}
}

// apiHandler is an authenticated handler. A returned error is written as
// the response.
type apiHandler func(w http.ResponseWriter, r *http.Request, actor auth.Actor) error

// authed resolves the bearer token before calling h.
func (s *Server) authed(h apiHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := s.issuer.Authenticate(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		r = r.WithContext(auth.WithActor(r.Context(), actor))
		if err := h(w, r, actor); err != nil {
			writeError(w, r, err)
		}
	})
}

// statusRecorder captures the response status for request logs.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
