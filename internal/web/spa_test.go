package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bundle(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "main.js"), []byte("console.log(1)"), 0o644))
	return dir
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestSPAHandler(t *testing.T) {
	h := NewSPAHandler(bundle(t))

	tests := []struct {
		name   string
		method string
		target string
		status int
		body   string
	}{
		{name: "static asset", method: http.MethodGet, target: "/assets/main.js", status: http.StatusOK, body: "console.log(1)"},
		{name: "client route", method: http.MethodGet, target: "/requests/manage", status: http.StatusOK, body: "<html>app</html>"},
		{name: "directory", method: http.MethodGet, target: "/assets/", status: http.StatusOK, body: "<html>app</html>"},
		{name: "traversal stays inside", method: http.MethodGet, target: "/../../etc/passwd", status: http.StatusOK, body: "<html>app</html>"},
		{name: "post", method: http.MethodPost, target: "/login", status: http.StatusNotFound},
		{name: "delete", method: http.MethodDelete, target: "/assets/main.js", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.method, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestSPAHandlerWithoutBundle(t *testing.T) {
	h := NewSPAHandler(t.TempDir())
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/anything").Code)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("WEB_ADDR", "")
	t.Setenv("PORT", "9000")
	t.Setenv("WEB_DIST_DIR", "/srv/app")
	assert.Equal(t, Config{Addr: ":9000", DistDir: "/srv/app"}, LoadConfig())

	t.Setenv("WEB_ADDR", "127.0.0.1:8081")
	assert.Equal(t, "127.0.0.1:8081", LoadConfig().Addr)

	t.Setenv("WEB_ADDR", "")
	t.Setenv("PORT", "")
	assert.Equal(t, ":4200", LoadConfig().Addr)
}
