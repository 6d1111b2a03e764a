// Package web serves a compiled single page application bundle.
package web

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const indexFile = "index.html"

// SPAHandler serves files that exist under StaticPath and answers every other
// GET with the index document so client-side routes survive a reload.
type SPAHandler struct {
	StaticPath string
	IndexPath  string
}

func NewSPAHandler(staticPath string) SPAHandler {
	return SPAHandler{StaticPath: staticPath, IndexPath: indexFile}
}

func (h SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	target := filepath.Join(h.StaticPath, filepath.FromSlash(clean))
	info, err := os.Stat(target)
	switch {
	case err == nil && !info.IsDir():
		http.FileServer(http.Dir(h.StaticPath)).ServeHTTP(w, r)
	case err == nil, errors.Is(err, fs.ErrNotExist):
		h.serveIndex(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h SPAHandler) serveIndex(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(filepath.Join(h.StaticPath, h.IndexPath))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, h.IndexPath, info.ModTime(), f)
}

type Config struct {
	Addr    string
	DistDir string
}

// LoadConfig reads WEB_ADDR, falling back to :$PORT and then :4200.
func LoadConfig() Config {
	_ = godotenv.Load()
	addr := strings.TrimSpace(os.Getenv("WEB_ADDR"))
	if addr == "" {
		if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
			addr = ":" + port
		} else {
			addr = ":4200"
		}
	}
	dist := strings.TrimSpace(os.Getenv("WEB_DIST_DIR"))
	if dist == "" {
		dist = "frontend/dist"
	}
	return Config{Addr: addr, DistDir: dist}
}
