package dashboard

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHandlerServesRoot(t *testing.T) {
	w := get(t, Handler(""), "/")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /: got status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("GET /: response doesn't contain HTML doctype")
	}
	if got := w.Header().Get("Cache-Control"); got != "no-cache, must-revalidate" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestHandlerServesAssets(t *testing.T) {
	h := Handler("")
	for _, asset := range []string{"/app.js", "/style.css"} {
		w := get(t, h, asset)
		if w.Code != http.StatusOK || w.Body.Len() == 0 {
			t.Errorf("GET %s: status %d, %d bytes", asset, w.Code, w.Body.Len())
		}
	}
	if !strings.Contains(get(t, h, "/app.js").Body.String(), "/ws`") {
		t.Error("app.js does not open the WebSocket")
	}
}

func TestHandlerFallsBackToIndex(t *testing.T) {
	w := get(t, Handler(""), "/sequences/intro")
	if w.Code != http.StatusOK {
		t.Fatalf("GET unknown path: got status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("unknown path did not serve index.html")
	}
}

func TestHandlerServesDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<!DOCTYPE html><p>dev build</p>"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	w := get(t, Handler(dir), "/")
	if !strings.Contains(w.Body.String(), "dev build") {
		t.Errorf("GET / from dir = %q, want dev build", w.Body.String())
	}
}

func TestHandlerMissingDirUsesEmbedded(t *testing.T) {
	w := get(t, Handler(filepath.Join(t.TempDir(), "missing")), "/")
	if !strings.Contains(w.Body.String(), "Lightshow") {
		t.Error("missing dir did not fall back to embedded assets")
	}
}
