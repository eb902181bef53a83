package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/naybourhood/naybourhood-server/internal/pkg/httputil"
	"github.com/naybourhood/naybourhood-server/internal/storage"
)

const maxUploadBytes = 25 << 20 // 25 MiB

// uploadKey scopes an object to its owner. Every upload handler goes
// through this, so one user's files are never reachable under another
// user's session.
func uploadKey(userID, name string) string {
	return "uploads/" + userID + "/" + name
}

// ListUploads returns the caller's stored object names.
func (h *Handlers) ListUploads(w http.ResponseWriter, r *http.Request) {
	prefix := uploadKey(caller(r).UserID, "")
	keys, err := h.store.List(r.Context(), prefix)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	names := []string{}
	for _, key := range keys {
		names = append(names, strings.TrimPrefix(key, prefix))
	}
	httputil.OK(w, map[string]any{"files": names})
}

// Upload stores one multipart file under the caller's scope. The
// optional "name" form field overrides the client filename.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.BadRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "file field is required")
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}
	if !validUploadName(name) {
		httputil.BadRequest(w, "invalid file name")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	if err := h.store.Put(r.Context(), uploadKey(caller(r).UserID, name), data, contentType); err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.Created(w, map[string]any{"name": name, "size": len(data)})
}

// GetUpload streams one of the caller's stored objects back.
func (h *Handlers) GetUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !validUploadName(name) {
		httputil.NotFound(w, "file not found")
		return
	}
	data, err := h.store.Get(r.Context(), uploadKey(caller(r).UserID, name))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.NotFound(w, "file not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// DeleteUpload removes one of the caller's stored objects. Missing
// names are a no-op.
func (h *Handlers) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !validUploadName(name) {
		httputil.NoContent(w)
		return
	}
	if err := h.store.Delete(r.Context(), uploadKey(caller(r).UserID, name)); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

func validUploadName(name string) bool {
	return name != "" &&
		!strings.Contains(name, "/") &&
		!strings.Contains(name, "\\") &&
		!strings.Contains(name, "..")
}
