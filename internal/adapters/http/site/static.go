package site

import (
	"embed"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

//go:embed static/*
var staticFS embed.FS

// assets exposes static/ at its root.
var assets fs.FS = func() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return staticFS
	}
	return sub
}()

// HandleStatic serves embedded assets.
func (s *Site) HandleStatic(w http.ResponseWriter, r *http.Request) {
	if !s.allowGet(w, r) {
		return
	}
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	data, err := fs.ReadFile(assets, name)
	if err != nil || name == "" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType(name, data))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}

// contentType sniffs data. Plain text is ambiguous for stylesheets and
// scripts, so the extension decides there.
func contentType(name string, data []byte) string {
	mt := mimetype.Detect(data)
	if mt.Is("text/plain") {
		if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
			return ct
		}
	}
	return mt.String()
}
