package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/education"
)

// multipartOverhead is the allowance for form fields and part headers on
// top of the file itself.
const multipartOverhead = 1 << 20

// streamIdle closes progress streams that see no updates for this long.
const streamIdle = 5 * time.Minute

func (s *Server) listMaterials(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	list, err := s.svc.ListMaterials(r.Context(), actor, r.PathValue("courseID"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// uploadMaterial streams a multipart upload into storage. The text fields
// (title, description, size_bytes, upload_id) must precede the "file"
// part. Without size_bytes the file is spooled to disk first to learn its
// length.
func (s *Server) uploadMaterial(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		return fmt.Errorf("%w: expected multipart/form-data: %v", errBadRequest, err)
	}

	form := education.NewMaterial{}
	uploadID := r.URL.Query().Get("upload_id")

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return education.NewValidationError(education.FieldError{Field: "file", Message: "is required"})
		}
		if err != nil {
			return fmt.Errorf("%w: read multipart body: %v", errBadRequest, err)
		}

		if part.FormName() != "file" {
			value, err := readField(part)
			if err != nil {
				return err
			}
			switch part.FormName() {
			case "title":
				form.Title = value
			case "description":
				form.Description = value
			case "upload_id":
				uploadID = value
			case "size_bytes":
				n, err := strconv.ParseInt(value, 10, 64)
				if err != nil {
					return education.NewValidationError(education.FieldError{Field: "size_bytes", Message: "must be a whole number"})
				}
				form.SizeBytes = n
			}
			continue
		}

		form.FileName = part.FileName()
		form.ContentType = partContentType(part)
		if form.Title == "" {
			form.Title = strings.TrimSuffix(form.FileName, filepath.Ext(form.FileName))
		}

		body := io.Reader(part)
		if form.SizeBytes <= 0 {
			spooled, size, err := s.spool(part)
			if err != nil {
				return err
			}
			defer spooled.Close()
			body = spooled
			form.SizeBytes = size
		}

		m, err := s.svc.UploadMaterial(r.Context(), actor, r.PathValue("courseID"), form, body, uploadID)
		if err != nil {
			return err
		}
		return writeResult(w, http.StatusCreated, m, "Material %q uploaded", m.Title)
	}
}

func (s *Server) deleteMaterial(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	if err := s.svc.DeleteMaterial(r.Context(), actor, r.PathValue("courseID"), r.PathValue("materialID")); err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, nil, "Material deleted")
}

func (s *Server) getUpload(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	u, err := s.svc.UploadProgress(r.Context(), actor, r.PathValue("uploadID"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, u)
	return nil
}

// serverMessage is a typed frame on the progress websocket.
type serverMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// streamUpload follows an upload over a websocket until it completes or
// fails. Each snapshot is sent as {"type":"progress","payload":{...}}.
func (s *Server) streamUpload(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	uploadID := r.PathValue("uploadID")

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.originPatterns})
	if err != nil {
		slog.Warn("websocket accept failed", "upload_id", uploadID, "error", err)
		return nil
	}
	defer c.CloseNow()

	// Clients only listen; CloseRead handles their control frames and
	// cancels ctx once they go away.
	ctx := c.CloseRead(r.Context())

	updates, stop, err := s.svc.FollowUpload(ctx, actor, uploadID)
	if err != nil {
		slog.Warn("progress subscribe failed", "upload_id", uploadID, "error", err)
		c.Close(websocket.StatusInternalError, "progress unavailable")
		return nil
	}
	defer stop()

	idle := time.NewTimer(streamIdle)
	defer idle.Stop()

	for {
		select {
		case u, ok := <-updates:
			if !ok {
				c.Close(websocket.StatusNormalClosure, "")
				return nil
			}
			if err := writeFrame(ctx, c, serverMessage{Type: "progress", Payload: u}); err != nil {
				slog.Debug("progress stream closed", "upload_id", uploadID, "error", err)
				return nil
			}
			if u.Terminal() {
				c.Close(websocket.StatusNormalClosure, string(u.State))
				return nil
			}
			idle.Reset(streamIdle)
		case <-idle.C:
			c.Close(websocket.StatusGoingAway, "idle")
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func writeFrame(ctx context.Context, c *websocket.Conn, msg serverMessage) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return wsjson.Write(ctx, c, msg)
}

// readField reads a small multipart text field.
func readField(part *multipart.Part) (string, error) {
	b, err := io.ReadAll(io.LimitReader(part, 8<<10))
	if err != nil {
		return "", fmt.Errorf("%w: read field %s: %v", errBadRequest, part.FormName(), err)
	}
	return strings.TrimSpace(string(b)), nil
}

func partContentType(part *multipart.Part) string {
	ct := part.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(part.FileName()))); byExt != "" {
			ct = byExt
		}
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return ct
}

// spooledFile removes its backing temp file on Close.
type spooledFile struct {
	*os.File
}

func (f spooledFile) Close() error {
	err := f.File.Close()
	if rmErr := os.Remove(f.Name()); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

// spool copies at most maxUploadBytes+1 bytes of r to a temp file and
// rewinds it. An oversized file is reported with its truncated size so the
// service rejects it.
func (s *Server) spool(r io.Reader) (spooledFile, int64, error) {
	f, err := os.CreateTemp("", "eduflex-upload-*")
	if err != nil {
		return spooledFile{}, 0, fmt.Errorf("create spool file: %w", err)
	}
	sf := spooledFile{f}

	n, err := io.Copy(f, io.LimitReader(r, s.maxUploadBytes+1))
	if err != nil {
		sf.Close()
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return spooledFile{}, 0, education.NewValidationError(education.FieldError{
				Field:   "size_bytes",
				Message: fmt.Sprintf("file is larger than the %d MB limit", s.maxUploadBytes>>20),
			})
		}
		return spooledFile{}, 0, fmt.Errorf("%w: read file: %v", errBadRequest, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		sf.Close()
		return spooledFile{}, 0, fmt.Errorf("rewind spool file: %w", err)
	}
	return sf, n, nil
}
