package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/platform/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("EDUFLEX_DOCSTORE_DRIVER", "bolt")
	t.Setenv("EDUFLEX_DOCSTORE_BOLT_PATH", filepath.Join(t.TempDir(), "eduflex.db"))
	t.Setenv("EDUFLEX_BLOB_DRIVER", "local")
	t.Setenv("EDUFLEX_BLOB_LOCAL_DIR", t.TempDir())
	t.Setenv("EDUFLEX_CACHE_URL", "")
	t.Setenv("EDUFLEX_AI_OPENAI_API_KEY", "")
	t.Setenv("EDUFLEX_AI_ANTHROPIC_API_KEY", "")
	t.Setenv("EDUFLEX_AI_GOOGLE_API_KEY", "")
	t.Setenv("EDUFLEX_AI_DEEPSEEK_API_KEY", "")
	t.Setenv("EDUFLEX_AI_OPENROUTER_API_KEY", "")
	t.Setenv("EDUFLEX_AI_OLLAMA_ENABLED", "false")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return cfg
}

func TestHealthEndpoints(t *testing.T) {
	a, err := newApp(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.close()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthz returns 200",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "readyz returns 200",
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			a.handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestNewApp_UnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Blob.Driver = "ftp"

	if _, err := newApp(context.Background(), cfg); err == nil {
		t.Fatal("newApp() should fail for an unknown blob driver")
	}
}

func TestNewAIRouter(t *testing.T) {
	cfg := testConfig(t)
	router, err := newAIRouter(cfg)
	if err != nil {
		t.Fatalf("newAIRouter() error = %v", err)
	}
	if router.HasProvider() {
		t.Fatal("router should be empty without keys")
	}

	cfg.AI.Anthropic.APIKey = "sk-ant-test"
	cfg.AI.Google.APIKey = "gm-test"
	cfg.AI.DeepSeek.APIKey = "sk-test"
	cfg.AI.Ollama.Enabled = true
	router, err = newAIRouter(cfg)
	if err != nil {
		t.Fatalf("newAIRouter() error = %v", err)
	}
	want := []string{"anthropic", "google", "deepseek", "ollama"}
	if got := router.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestSeed(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "algebra.course.yaml"), []byte(`
id: algebra-101
title: "Algebra Basics"
instructor_id: seed-instructor
`), 0o644)
	os.WriteFile(filepath.Join(dir, "variables.quiz.yaml"), []byte(`
id: algebra-101-variables
course_id: algebra-101
title: "Variables check"
questions:
  - type: true_false
    text: "2x means 2 times x."
    answer: "true"
`), 0o644)

	a, err := newApp(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.close()

	ctx := context.Background()
	for range 2 {
		if err := a.seed(ctx, dir); err != nil {
			t.Fatalf("seed() error = %v", err)
		}
	}

	courses, err := a.svc.ListCourses(ctx, auth.Actor{ID: "admin-1", Role: auth.RoleAdmin})
	if err != nil {
		t.Fatalf("ListCourses() error = %v", err)
	}
	if len(courses) != 1 || courses[0].ID != "algebra-101" {
		t.Errorf("courses = %+v", courses)
	}
}
