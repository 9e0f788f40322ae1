package playback

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(strings.Repeat("a", size)), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestServer_ServeFile(t *testing.T) {
	path := writeFile(t, "clip.mp4", 1000)
	s := NewServer(nil)
	s.SetChunkSize(300)

	tests := []struct {
		name       string
		rangeHdr   string
		wantStatus int
		wantLen    int
		wantRange  string
	}{
		{"no range", "", http.StatusOK, 1000, ""},
		{"closed range", "bytes=100-199", http.StatusPartialContent, 100, "bytes 100-199/1000"},
		{"open range capped", "bytes=0-", http.StatusPartialContent, 300, "bytes 0-299/1000"},
		{"suffix", "bytes=-50", http.StatusPartialContent, 50, "bytes 950-999/1000"},
		{"unsatisfiable", "bytes=5000-", http.StatusRequestedRangeNotSatisfiable, -1, "bytes */1000"},
		{"invalid range served whole", "chars=0-1", http.StatusOK, 1000, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/media/file", nil)
			if tt.rangeHdr != "" {
				req.Header.Set("Range", tt.rangeHdr)
			}
			rec := httptest.NewRecorder()

			if err := s.ServeFile(rec, req, path); err != nil {
				t.Fatalf("ServeFile() error = %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantLen >= 0 && rec.Body.Len() != tt.wantLen {
				t.Errorf("body length = %d, want %d", rec.Body.Len(), tt.wantLen)
			}
			if got := rec.Header().Get("Content-Range"); got != tt.wantRange {
				t.Errorf("Content-Range = %q, want %q", got, tt.wantRange)
			}
			if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
				t.Errorf("Content-Type = %q, want video/mp4", got)
			}
		})
	}
}

func TestServer_ServeFile_Missing(t *testing.T) {
	s := NewServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/media/file", nil)

	if err := s.ServeFile(rec, req, filepath.Join(t.TempDir(), "gone.mp4")); err != nil {
		t.Fatalf("ServeFile() error = %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	if err := s.ServeFile(rec, req, ""); err != ErrNoFile {
		t.Errorf("ServeFile(\"\") error = %v, want ErrNoFile", err)
	}
}

func TestServer_ServeThumbnail(t *testing.T) {
	path := writeFile(t, "1500_w160.jpg", 64)
	s := NewServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/thumbnails/1500", nil)

	if err := s.ServeThumbnail(rec, req, path); err != nil {
		t.Fatalf("ServeThumbnail() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", got)
	}
	if !strings.Contains(rec.Header().Get("Cache-Control"), "immutable") {
		t.Errorf("Cache-Control = %q, want immutable", rec.Header().Get("Cache-Control"))
	}
}
