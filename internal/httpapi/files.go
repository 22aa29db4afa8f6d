package httpapi

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/blob"
)

// serveFile streams a locally stored blob. Keys are unguessable material
// paths, so the route is public like a storage bucket URL.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := blob.ValidateKey(key); err != nil {
		writeError(w, r, err)
		return
	}

	rc, contentType, err := s.files.Open(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
	if !inlineSafe(contentType) {
		w.Header().Set("Content-Disposition", "attachment")
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("failed to stream file", "key", key, "error", err)
	}
}

// inlineSafe reports whether a browser may render the type in place.
// Everything else, including SVG and HTML, is forced to download.
func inlineSafe(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch {
	case mt == "application/pdf", mt == "text/plain":
		return true
	case mt == "image/svg+xml":
		return false
	case strings.HasPrefix(mt, "image/"), strings.HasPrefix(mt, "audio/"), strings.HasPrefix(mt, "video/"):
		return true
	default:
		return false
	}
}
