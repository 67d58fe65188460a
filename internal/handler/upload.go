package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unionportal/internal/fileserver"
)

// UploadHandler — загрузка и раздача изображений (фото новостей, афиши, аватары).
// Загрузка только под сессией; раздача публичная.
type UploadHandler struct {
	files *fileserver.Service
}

func NewUploadHandler(files *fileserver.Service) *UploadHandler {
	return &UploadHandler{files: files}
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	h.files.Upload(w, r)
}

func (h *UploadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	h.files.Serve(w, r, chi.URLParam(r, "filename"))
}
