package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/heimdex/heimdex-editor/internal/editor"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:3000", true},
		{"http://127.0.0.1", true},
		{"https://acme.app.heimdex.co", true},
		{"http://devorg.app.heimdex.local:3000", true},
		{"https://a--b.app.heimdex.co", true},
		{"", false},
		{"https://evil.com", false},
		{"https://app.heimdex.co", false},
		{"https://acme.app.heimdex.co.evil.com", false},
		{"http://192.168.1.1:3000", false},
		{"ftp://localhost:3000", false},
		{"http://localhost:not-a-port", false},
		{"http://localhost:3000/editor", false},
		{"https://-bad.app.heimdex.co", false},
	}

	for _, tt := range tests {
		if got := isAllowedOrigin(tt.origin); got != tt.want {
			t.Errorf("isAllowedOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

// The editor page drags markers and fetches thumbnails cross-origin, so
// preflights for those routes are answered without reaching a handler.
func TestCORSAllowlist_EditorRoutes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		origin     string
		wantStatus int
		wantACAO   string
	}{
		{"drag move preflight", http.MethodOptions, "/markers/drag/move", "http://localhost:3000", http.StatusNoContent, "http://localhost:3000"},
		{"thumbnail preflight", http.MethodOptions, "/thumbnails/40000", "https://acme.app.heimdex.co", http.StatusNoContent, "https://acme.app.heimdex.co"},
		{"denied preflight", http.MethodOptions, "/selection", "https://evil.com", http.StatusForbidden, ""},
		{"denied origin still served", http.MethodGet, "/timeline", "https://evil.com", http.StatusOK, ""},
		{"no origin", http.MethodGet, "/timeline", "", http.StatusOK, ""},
		{"allowed get", http.MethodGet, "/thumbnails", "http://127.0.0.1:5173", http.StatusOK, "http://127.0.0.1:5173"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			handler := CORSAllowlist()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantACAO {
				t.Errorf("ACAO = %q, want %q", got, tt.wantACAO)
			}
			if reached == (tt.method == http.MethodOptions) {
				t.Errorf("handler reached = %v for %s", reached, tt.method)
			}
		})
	}
}

func TestCORSAllowlist_ExposesRangeAndRequestID(t *testing.T) {
	handler := CORSAllowlist()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Encoding")
		w.WriteHeader(http.StatusPartialContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/media/file", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Range", "bytes=0-1023")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	exposed := rr.Header().Get("Access-Control-Expose-Headers")
	for _, h := range []string{"Content-Range", "Accept-Ranges", "X-Request-ID"} {
		if !strings.Contains(exposed, h) {
			t.Errorf("Access-Control-Expose-Headers = %q, missing %s", exposed, h)
		}
	}
	if allowed := rr.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(allowed, "Range") {
		t.Errorf("Access-Control-Allow-Headers = %q, missing Range", allowed)
	}
	if vary := rr.Header().Values("Vary"); len(vary) != 2 {
		t.Errorf("Vary = %v, want Origin added alongside the handler's value", vary)
	}
}

func TestIsLoopbackRemoteAddr(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:12345", true},
		{"[::1]:12345", true},
		{"127.0.0.1", true},
		{"::1", true},
		{"[::1]", true},
		{"8.8.8.8:12345", false},
		{"10.0.0.1:3000", false},
		{"not-an-ip:1234", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isLoopbackRemoteAddr(tt.addr); got != tt.want {
			t.Errorf("isLoopbackRemoteAddr(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

// Thumbnails are loaded by <img> tags without a bearer token, so the loopback
// guard is their only gate.
func TestLoopbackGuard_ThumbnailRoute(t *testing.T) {
	tests := []struct {
		remote string
		want   int
	}{
		{"127.0.0.1:40000", http.StatusOK},
		{"[::1]:40000", http.StatusOK},
		{"192.168.1.20:40000", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			cfg, pb := loadedConfig()
			cfg.Thumbnails = &fakeThumbs{refs: map[int64]*timeline.BitmapRef{
				5000: {Timestamp: 5, Path: "/cache/abc/5000_w160.jpg"},
			}}

			req := httptest.NewRequest(http.MethodGet, "/thumbnails/5000", nil)
			req.RemoteAddr = tt.remote
			rr := httptest.NewRecorder()
			NewRouter(cfg).ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if served := pb.thumbPath != ""; served != (tt.want == http.StatusOK) {
				t.Errorf("thumbnail served = %v", served)
			}
		})
	}
}

func TestWriteSessionError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{editor.ErrNoMedia, http.StatusConflict, "NO_MEDIA"},
		{timeline.ErrDragActive, http.StatusConflict, "DRAG_ACTIVE"},
		{fmt.Errorf("begin drag: %w", timeline.ErrDragActive), http.StatusConflict, "DRAG_ACTIVE"},
		{timeline.ErrNoDrag, http.StatusConflict, "NO_DRAG"},
		{errors.New("disk full"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeSessionError(rr, tt.err)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if body := decodeJSONBody(t, rr); body["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", body["code"], tt.wantCode)
			}
		})
	}
}

func TestLoggingMiddleware_HighFrequencyRoutesLogAtDebug(t *testing.T) {
	tests := []struct {
		path    string
		status  int
		wantLog bool
	}{
		{"/markers/drag/move", http.StatusOK, false},
		{"/playback/time", http.StatusOK, false},
		{"/thumbnails/40000", http.StatusOK, false},
		{"/markers/drag/move", http.StatusConflict, true},
		{"/markers/drag", http.StatusOK, true},
		{"/export/edl", http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %d", tt.path, tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
			handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, tt.path, nil))

			if logged := buf.Len() > 0; logged != tt.wantLog {
				t.Errorf("logged = %v at info level, want %v: %s", logged, tt.wantLog, buf.String())
			}
		})
	}
}

func TestLoggingMiddleware_CarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	handler := RequestIDMiddleware()(LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/markers/drag/move", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v: %s", err, buf.String())
	}
	if entry["level"] != "DEBUG" {
		t.Errorf("level = %v, want DEBUG", entry["level"])
	}
	if entry["request_id"] != rr.Header().Get("X-Request-ID") {
		t.Errorf("request_id = %v, want %q", entry["request_id"], rr.Header().Get("X-Request-ID"))
	}
	if entry["status"] != float64(http.StatusNoContent) || entry["path"] != "/markers/drag/move" {
		t.Errorf("entry = %v", entry)
	}
}

func TestAuthMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		store  ConfigStore
		header string
		want   int
	}{
		{"missing header", &fakeConfigStore{token: "secret"}, "", http.StatusUnauthorized},
		{"wrong scheme", &fakeConfigStore{token: "secret"}, "Basic secret", http.StatusUnauthorized},
		{"wrong token", &fakeConfigStore{token: "secret"}, "Bearer nope", http.StatusUnauthorized},
		{"valid token", &fakeConfigStore{token: "secret"}, "Bearer secret", http.StatusOK},
		{"no stored token", &fakeConfigStore{}, "Bearer secret", http.StatusInternalServerError},
		{"store error", &fakeConfigStore{err: errors.New("db closed")}, "Bearer secret", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/markers/drag", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			AuthMiddleware(tt.store, logger)(next).ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestRecoveryMiddleware_LogsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := RequestIDMiddleware()(RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/timeline/wheel", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if body := decodeJSONBody(t, rr); body["code"] != "INTERNAL_ERROR" {
		t.Errorf("code = %v, want INTERNAL_ERROR", body["code"])
	}
	id := rr.Header().Get("X-Request-ID")
	if len(id) != 8 || !strings.Contains(buf.String(), `"request_id":"`+id+`"`) {
		t.Errorf("panic log %q does not carry request id %q", buf.String(), id)
	}
}

type fakeConfigStore struct {
	token string
	err   error
}

func (f *fakeConfigStore) GetConfig(ctx context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if key != AuthTokenKey {
		return "", nil
	}
	return f.token, nil
}
