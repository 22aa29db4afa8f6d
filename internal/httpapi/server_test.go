package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/authoring"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/blob"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/docstore"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/education"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/httpapi"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/progress"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/sheets"
)

type apiHarness struct {
	handler http.Handler
	issuer  *auth.Issuer
	blobs   *blob.MemoryStorage
}

func newAPI(t *testing.T, ready map[string]httpapi.ReadyCheck) *apiHarness {
	t.Helper()

	blobs := blob.NewMemoryStorage("http://localhost/files")
	svc, err := authoring.NewService(authoring.Config{
		Store: docstore.NewMemoryStore(),
		Blobs: blobs,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	issuer := auth.NewIssuer("test-secret", time.Hour)

	srv, err := httpapi.New(httpapi.Config{
		Service: svc,
		Issuer:  issuer,
		Files:   blobs,
		Ready:   ready,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &apiHarness{handler: srv, issuer: issuer, blobs: blobs}
}

func (a *apiHarness) token(t *testing.T, userID string, role auth.Role) string {
	t.Helper()
	tok, err := a.issuer.Issue(userID, role)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return tok
}

func (a *apiHarness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Notice authoring.Notice        `json:"notice"`
	Data   json.RawMessage         `json:"data"`
	Fields []education.FieldError `json:"fields"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func data[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	env := decode[envelope](t, rec)
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data %q: %v", env.Data, err)
	}
	return v
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d, body = %s", rec.Code, want, rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	api := newAPI(t, map[string]httpapi.ReadyCheck{
		"store": func(context.Context) error { return nil },
	})

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/healthz", http.StatusOK, `{"status":"ok"}`},
		{"/readyz", http.StatusOK, `{"status":"ready"}`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := api.do(t, http.MethodGet, tt.path, "", nil)
			wantStatus(t, rec, tt.wantStatus)
			if got := strings.TrimSpace(rec.Body.String()); got != tt.wantBody {
				t.Errorf("body = %s, want %s", got, tt.wantBody)
			}
		})
	}
}

func TestReadyz_FailingCheck(t *testing.T) {
	api := newAPI(t, map[string]httpapi.ReadyCheck{
		"store": func(context.Context) error { return nil },
		"cache": func(context.Context) error { return errors.New("connection refused") },
	})

	rec := api.do(t, http.MethodGet, "/readyz", "", nil)
	wantStatus(t, rec, http.StatusServiceUnavailable)

	body := decode[struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}](t, rec)
	if body.Checks["cache"] != "connection refused" {
		t.Errorf("checks = %v", body.Checks)
	}
	if _, ok := body.Checks["store"]; ok {
		t.Errorf("healthy check reported: %v", body.Checks)
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := httpapi.New(httpapi.Config{}); err == nil {
		t.Fatal("New() should fail without a service")
	}
}

func TestAuthAndErrors(t *testing.T) {
	api := newAPI(t, nil)
	inst := api.token(t, "inst-1", auth.RoleInstructor)
	stud := api.token(t, "stud-1", auth.RoleStudent)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       any
		wantStatus int
	}{
		{"no token", http.MethodGet, "/api/courses", "", nil, http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/courses", "garbage", nil, http.StatusUnauthorized},
		{"student cannot author", http.MethodPost, "/api/courses", stud, education.NewCourse{Title: "Algebra"}, http.StatusForbidden},
		{"blank title", http.MethodPost, "/api/courses", inst, education.NewCourse{Title: "  "}, http.StatusUnprocessableEntity},
		{"unknown field", http.MethodPost, "/api/courses", inst, map[string]string{"name": "x"}, http.StatusBadRequest},
		{"missing course", http.MethodGet, "/api/courses/nope", inst, nil, http.StatusNotFound},
		{"generation off", http.MethodPost, "/api/generate/questions", inst, authoring.GenerateQuestionsRequest{Topic: "sets", Count: 3}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, tt.method, tt.path, tt.token, tt.body)
			wantStatus(t, rec, tt.wantStatus)
			env := decode[envelope](t, rec)
			if env.Notice.OK || env.Notice.Message == "" {
				t.Errorf("notice = %+v", env.Notice)
			}
		})
	}
}

func TestValidationFields(t *testing.T) {
	api := newAPI(t, nil)
	inst := api.token(t, "inst-1", auth.RoleInstructor)

	rec := api.do(t, http.MethodPost, "/api/courses", inst, education.NewCourse{Title: ""})
	wantStatus(t, rec, http.StatusUnprocessableEntity)

	env := decode[envelope](t, rec)
	if len(env.Fields) == 0 || env.Fields[0].Field != "title" {
		t.Errorf("fields = %+v, want title", env.Fields)
	}
}

func createCourse(t *testing.T, api *apiHarness, token string) education.Course {
	t.Helper()
	rec := api.do(t, http.MethodPost, "/api/courses", token, education.NewCourse{Title: "Algebra"})
	wantStatus(t, rec, http.StatusCreated)
	return data[education.Course](t, rec)
}

func TestQuizFlow(t *testing.T) {
	api := newAPI(t, nil)
	inst := api.token(t, "inst-1", auth.RoleInstructor)
	stud := api.token(t, "stud-1", auth.RoleStudent)
	course := createCourse(t, api, inst)

	rec := api.do(t, http.MethodPost, "/api/courses/"+course.ID+"/quizzes", inst, education.NewQuiz{
		Title: "Week 1",
		Questions: []education.NewQuestion{
			{Type: education.MultipleChoice, Text: "2 + 2?", Options: []string{"3", "4"}, CorrectAnswer: "4", Explanation: "Count."},
		},
	})
	wantStatus(t, rec, http.StatusCreated)
	env := decode[envelope](t, rec)
	if !env.Notice.OK || !strings.Contains(env.Notice.Message, "Week 1") {
		t.Errorf("notice = %+v", env.Notice)
	}
	quiz := data[education.Quiz](t, rec)

	// Unpublished quizzes are hidden from students.
	rec = api.do(t, http.MethodGet, "/api/quizzes/"+quiz.ID, stud, nil)
	wantStatus(t, rec, http.StatusNotFound)

	rec = api.do(t, http.MethodPost, "/api/quizzes/"+quiz.ID+"/questions", inst, education.NewQuestion{
		Type: education.TrueFalse, Text: "Zero is even.", CorrectAnswer: "true",
	})
	wantStatus(t, rec, http.StatusCreated)

	rec = api.do(t, http.MethodPost, "/api/quizzes/"+quiz.ID+"/publish", inst, nil)
	wantStatus(t, rec, http.StatusOK)
	if !data[education.Quiz](t, rec).IsPublished {
		t.Fatal("quiz not published")
	}

	rec = api.do(t, http.MethodGet, "/api/quizzes/"+quiz.ID, stud, nil)
	wantStatus(t, rec, http.StatusOK)
	got := decode[education.Quiz](t, rec)
	if len(got.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(got.Questions))
	}
	for _, q := range got.Questions {
		if q.CorrectAnswer != "" || q.Explanation != "" {
			t.Errorf("student sees answers: %+v", q)
		}
	}

	rec = api.do(t, http.MethodGet, "/api/quizzes/"+quiz.ID+"/export.xlsx", inst, nil)
	wantStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != sheets.ContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, ".xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	exported := rec.Body.Bytes()

	// Re-import the exported workbook into a fresh quiz.
	rec = api.do(t, http.MethodPost, "/api/courses/"+course.ID+"/quizzes", inst, education.NewQuiz{Title: "Copy"})
	wantStatus(t, rec, http.StatusCreated)
	copyQuiz := data[education.Quiz](t, rec)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "week1.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(exported)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/quizzes/"+copyQuiz.ID+"/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+inst)
	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	wantStatus(t, rec, http.StatusOK)

	imported := data[struct {
		Quiz education.Quiz `json:"quiz"`
	}](t, rec)
	if len(imported.Quiz.Questions) != 2 {
		t.Errorf("imported questions = %d, want 2", len(imported.Quiz.Questions))
	}

	rec = api.do(t, http.MethodPost, "/api/quizzes/"+quiz.ID+"/publish", inst, map[string]bool{"publish": false})
	wantStatus(t, rec, http.StatusOK)
	if data[education.Quiz](t, rec).IsPublished {
		t.Error("quiz still published")
	}

	rec = api.do(t, http.MethodDelete, "/api/quizzes/"+quiz.ID, inst, nil)
	wantStatus(t, rec, http.StatusOK)
	rec = api.do(t, http.MethodGet, "/api/quizzes/"+quiz.ID, inst, nil)
	wantStatus(t, rec, http.StatusNotFound)
}

func TestLectureFlow(t *testing.T) {
	api := newAPI(t, nil)
	inst := api.token(t, "inst-1", auth.RoleInstructor)
	stud := api.token(t, "stud-1", auth.RoleStudent)
	course := createCourse(t, api, inst)

	rec := api.do(t, http.MethodPost, "/api/courses/"+course.ID+"/lectures", inst, education.NewLecture{
		Title:           "Office hours",
		ScheduledAt:     time.Now().Add(48 * time.Hour),
		DurationMinutes: 60,
		MeetingURL:      "https://meet.example.com/abc",
		Passcode:        "secret-1",
	})
	wantStatus(t, rec, http.StatusCreated)
	lecture := data[education.LiveLecture](t, rec)
	base := "/api/courses/" + course.ID + "/lectures/" + lecture.ID

	rec = api.do(t, http.MethodPost, base+"/join", stud, map[string]string{"passcode": "nope"})
	wantStatus(t, rec, http.StatusForbidden)

	rec = api.do(t, http.MethodPost, base+"/join", stud, map[string]string{"passcode": "secret-1"})
	wantStatus(t, rec, http.StatusOK)

	rec = api.do(t, http.MethodPost, base+"/status", inst, map[string]string{"status": "ended"})
	wantStatus(t, rec, http.StatusConflict)

	rec = api.do(t, http.MethodPost, base+"/status", inst, map[string]string{"status": "live"})
	wantStatus(t, rec, http.StatusOK)
	rec = api.do(t, http.MethodPost, base+"/status", inst, map[string]string{"status": "ended"})
	wantStatus(t, rec, http.StatusOK)

	rec = api.do(t, http.MethodPost, base+"/join", stud, map[string]string{"passcode": "secret-1"})
	wantStatus(t, rec, http.StatusConflict)
}

type uploadField struct {
	name, value string
}

func uploadRequest(t *testing.T, path, token string, fields []uploadField, fileName, contentType string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			t.Fatal(err)
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	pw, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	pw.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestUploadMaterial(t *testing.T) {
	content := []byte("%PDF-1.4 syllabus")

	tests := []struct {
		name        string
		fields      []uploadField
		fileName    string
		contentType string
		wantStatus  int
		wantType    string
	}{
		{
			name:        "declared size",
			fields:      []uploadField{{"title", "Syllabus"}, {"size_bytes", "17"}, {"upload_id", "up-1"}},
			fileName:    "syllabus.pdf",
			contentType: "application/pdf",
			wantStatus:  http.StatusCreated,
			wantType:    "application/pdf",
		},
		{
			name:       "spooled without size, type from extension",
			fields:     []uploadField{{"upload_id", "up-2"}},
			fileName:   "Week One.pdf",
			wantStatus: http.StatusCreated,
			wantType:   "application/pdf",
		},
		{
			name:        "rejected type",
			fields:      []uploadField{{"title", "Tool"}, {"upload_id", "up-3"}},
			fileName:    "tool.exe",
			contentType: "application/x-msdownload",
			wantStatus:  http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newAPI(t, nil)
			inst := api.token(t, "inst-1", auth.RoleInstructor)
			course := createCourse(t, api, inst)

			req := uploadRequest(t, "/api/courses/"+course.ID+"/materials", inst, tt.fields, tt.fileName, tt.contentType, content)
			rec := httptest.NewRecorder()
			api.handler.ServeHTTP(rec, req)
			wantStatus(t, rec, tt.wantStatus)

			uploadID := tt.fields[len(tt.fields)-1].value
			rec = api.do(t, http.MethodGet, "/api/uploads/"+uploadID, inst, nil)
			wantStatus(t, rec, http.StatusOK)
			u := decode[progress.Update](t, rec)

			if tt.wantStatus != http.StatusCreated {
				if u.State != progress.StateFailed || u.Message == "" {
					t.Errorf("progress = %+v, want failed", u)
				}
				if api.blobs.Len() != 0 {
					t.Errorf("blobs = %d, want 0", api.blobs.Len())
				}
				return
			}

			if u.State != progress.StateCompleted || u.Percent != 100 {
				t.Errorf("progress = %+v, want completed", u)
			}

			rec = api.do(t, http.MethodGet, "/api/courses/"+course.ID+"/materials", inst, nil)
			wantStatus(t, rec, http.StatusOK)
			list := decode[[]education.Material](t, rec)
			if len(list) != 1 {
				t.Fatalf("materials = %d, want 1", len(list))
			}
			m := list[0]
			if m.ContentType != tt.wantType || m.SizeBytes != int64(len(content)) {
				t.Errorf("material = %+v", m)
			}

			rec = api.do(t, http.MethodGet, "/files/"+m.StorageKey, "", nil)
			wantStatus(t, rec, http.StatusOK)
			if !bytes.Equal(rec.Body.Bytes(), content) {
				t.Errorf("file body = %q", rec.Body.String())
			}

			rec = api.do(t, http.MethodDelete, "/api/courses/"+course.ID+"/materials/"+m.ID, inst, nil)
			wantStatus(t, rec, http.StatusOK)
			if api.blobs.Len() != 0 {
				t.Errorf("blobs after delete = %d", api.blobs.Len())
			}
		})
	}
}

func TestServeFile_RejectsTraversal(t *testing.T) {
	api := newAPI(t, nil)
	rec := api.do(t, http.MethodGet, "/files/courses/../secret", "", nil)
	if rec.Code == http.StatusOK {
		t.Fatalf("status = %d, want failure", rec.Code)
	}
}

func TestUploadProgress_Ownership(t *testing.T) {
	api := newAPI(t, nil)
	inst := api.token(t, "inst-1", auth.RoleInstructor)
	other := api.token(t, "inst-2", auth.RoleInstructor)
	stud := api.token(t, "stud-1", auth.RoleStudent)
	course := createCourse(t, api, inst)
	otherCourse := createCourse(t, api, other)

	req := uploadRequest(t, "/api/courses/"+course.ID+"/materials", inst,
		[]uploadField{{"size_bytes", "3"}, {"upload_id", "mine"}}, "a.txt", "text/plain", []byte("abc"))
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	wantStatus(t, rec, http.StatusCreated)

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"uploader", inst, http.StatusOK},
		{"other instructor", other, http.StatusNotFound},
		{"student", stud, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodGet, "/api/uploads/mine", tt.token, nil)
			wantStatus(t, rec, tt.wantStatus)
		})
	}

	req = uploadRequest(t, "/api/courses/"+otherCourse.ID+"/materials", other,
		[]uploadField{{"size_bytes", "3"}, {"upload_id", "mine"}}, "b.txt", "text/plain", []byte("xyz"))
	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	wantStatus(t, rec, http.StatusConflict)
}

func TestServeFile_UsesStoredContentType(t *testing.T) {
	tests := []struct {
		name            string
		fileName        string
		contentType     string
		wantType        string
		wantDisposition string
	}{
		{"html named text file", "notes.html", "text/plain", "text/plain", ""},
		{"archive downloads", "week1.zip", "application/zip", "application/zip", "attachment"},
		{"image inline", "diagram.png", "image/png", "image/png", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newAPI(t, nil)
			inst := api.token(t, "inst-1", auth.RoleInstructor)
			course := createCourse(t, api, inst)

			req := uploadRequest(t, "/api/courses/"+course.ID+"/materials", inst,
				[]uploadField{{"size_bytes", "4"}}, tt.fileName, tt.contentType, []byte("<b>x"))
			rec := httptest.NewRecorder()
			api.handler.ServeHTTP(rec, req)
			wantStatus(t, rec, http.StatusCreated)
			m := data[education.Material](t, rec)

			rec = api.do(t, http.MethodGet, "/files/"+m.StorageKey, "", nil)
			wantStatus(t, rec, http.StatusOK)
			if ct := rec.Header().Get("Content-Type"); ct != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", ct, tt.wantType)
			}
			if cd := rec.Header().Get("Content-Disposition"); cd != tt.wantDisposition {
				t.Errorf("Content-Disposition = %q, want %q", cd, tt.wantDisposition)
			}
			if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("missing nosniff")
			}
		})
	}
}

func TestStreamUpload(t *testing.T) {
	api := newAPI(t, nil)
	srv := httptest.NewServer(api.handler)
	defer srv.Close()

	inst := api.token(t, "inst-1", auth.RoleInstructor)
	course := createCourse(t, api, inst)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/uploads/up-ws/ws?access_token=" + inst
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.CloseNow()

	done := make(chan error, 1)
	go func() {
		req := uploadRequest(t, srv.URL+"/api/courses/"+course.ID+"/materials?upload_id=up-ws", inst,
			[]uploadField{{"title", "Notes"}, {"size_bytes", "5"}}, "notes.txt", "text/plain", []byte("hello"))
		req.RequestURI = ""
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusCreated {
				err = errors.New(resp.Status)
			}
		}
		done <- err
	}()

	var last struct {
		Type    string          `json:"type"`
		Payload progress.Update `json:"payload"`
	}
	for !last.Payload.Terminal() {
		if err := wsjson.Read(ctx, conn, &last); err != nil {
			t.Fatalf("read frame: %v (last = %+v)", err, last)
		}
		if last.Type != "progress" || last.Payload.UploadID != "up-ws" {
			t.Fatalf("frame = %+v", last)
		}
	}
	if last.Payload.State != progress.StateCompleted || last.Payload.MaterialID == "" {
		t.Errorf("last frame = %+v", last.Payload)
	}

	if err := <-done; err != nil {
		t.Fatalf("upload: %v", err)
	}
}
