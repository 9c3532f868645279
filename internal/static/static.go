// Package static serves the front-end files and a root document.
package static

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Tyrowin/htl-relay/internal/config"
	"github.com/Tyrowin/htl-relay/internal/httpserver"
)

const indexFile = "index.html"

//go:embed index.html
var defaultIndex []byte

// DefaultIndex returns the embedded root document served when the static
// directory has no index.html.
func DefaultIndex() []byte {
	return defaultIndex
}

// Handler serves files from a directory. Paths that do not name a file get
// the root document so client-side routes resolve.
type Handler struct {
	dir   string
	files http.Handler
}

// NewHandler returns a Handler rooted at dir. A missing directory is not an
// error; every request then receives the root document.
func NewHandler(dir string) *Handler {
	return &Handler{
		dir:   dir,
		files: http.FileServer(http.Dir(dir)),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	if clean != "/" && !strings.HasSuffix(clean, "/"+indexFile) {
		name := filepath.Join(h.dir, filepath.FromSlash(clean))
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			h.files.ServeHTTP(w, r)
			return
		}
	}

	h.serveIndex(w, r)
}

func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request) {
	name := filepath.Join(h.dir, indexFile)
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		f, err := os.Open(name)
		if err == nil {
			defer f.Close()
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			http.ServeContent(w, r, indexFile, info.ModTime(), f)
			return
		}
		slog.Warn("open index document", "path", name, "error", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(defaultIndex); err != nil {
		slog.Warn("write default index", "error", err)
	}
}

// Run serves cfg.Dir on ln until ctx is cancelled.
func Run(ctx context.Context, cfg config.StaticConfig, ln net.Listener) error {
	slog.Info("serving static files", "dir", cfg.Dir)
	httpServer := httpserver.CreateServer(ln.Addr().String(), NewHandler(cfg.Dir))
	return httpserver.Run(ctx, httpServer, ln, cfg.ShutdownTimeout)
}

// ListenAndRun listens on cfg.Port and calls Run.
func ListenAndRun(ctx context.Context, cfg config.StaticConfig) error {
	ln, err := net.Listen("tcp", cfg.Port)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Port, err)
	}
	return Run(ctx, cfg, ln)
}
