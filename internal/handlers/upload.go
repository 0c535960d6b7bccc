package handlers

import (
	"net/http"
	"strings"
)

const maxUploadBytes = 10 << 20

// uploadFolders are the Cloudinary folders clients may target.
var uploadFolders = map[string]bool{"posts": true, "avatars": true}

// UploadImage stores an image with Cloudinary and returns its URL. The
// folder query parameter selects posts or avatars.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if _, found := h.currentUser(w, r); !found {
		return
	}
	if h.Uploader == nil {
		fail(w, http.StatusServiceUnavailable, "File uploads are not available")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<10)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		fail(w, http.StatusBadRequest, "Failed to parse form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		fail(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		fail(w, http.StatusBadRequest, "Only images can be uploaded")
		return
	}

	folder := r.URL.Query().Get("folder")
	if !uploadFolders[folder] {
		folder = "posts"
	}

	url, err := h.Uploader.UploadImage(r.Context(), file, "solace/"+folder)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "File uploaded successfully", map[string]interface{}{"url": url})
}
