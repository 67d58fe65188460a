package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/model"
	"github.com/unionportal/internal/repository"
	"github.com/unionportal/internal/ws"
)

// MembersHandler — страница «Команда». Чтение публичное, запись — под сессией.
type MembersHandler struct {
	repo *repository.MemberRepository
	hub  *ws.Hub
}

func NewMembersHandler(repo *repository.MemberRepository, hub *ws.Hub) *MembersHandler {
	return &MembersHandler{repo: repo, hub: hub}
}

func (h *MembersHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		logger.Errorf("members list: %v", err)
		writeError(w, http.StatusInternalServerError, "Ошибка загрузки команды")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": list})
}

type memberRequest struct {
	Name      string            `json:"name"`
	Title     string            `json:"title"`
	PhotoURL  string            `json:"photo_url"`
	Socials   map[string]string `json:"socials"`
	SortOrder int               `json:"sort_order"`
}

func (h *MembersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Имя обязательно")
		return
	}
	m := &model.Member{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Title:     req.Title,
		PhotoURL:  req.PhotoURL,
		Socials:   req.Socials,
		SortOrder: req.SortOrder,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.repo.Create(r.Context(), m); err != nil {
		logger.Errorf("member create: %v", err)
		writeError(w, http.StatusInternalServerError, "Не удалось сохранить участника")
		return
	}
	h.broadcast()
	writeJSON(w, http.StatusCreated, m)
}

func (h *MembersHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m := &model.Member{
		ID:        chi.URLParam(r, "id"),
		Name:      req.Name,
		Title:     req.Title,
		PhotoURL:  req.PhotoURL,
		Socials:   req.Socials,
		SortOrder: req.SortOrder,
	}
	if err := h.repo.Update(r.Context(), m); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Участник не найден")
			return
		}
		logger.Errorf("member update: %v", err)
		writeError(w, http.StatusInternalServerError, "Не удалось сохранить участника")
		return
	}
	h.broadcast()
	writeJSON(w, http.StatusOK, m)
}

func (h *MembersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Участник не найден")
			return
		}
		logger.Errorf("member delete: %v", err)
		writeError(w, http.StatusInternalServerError, "Не удалось удалить участника")
		return
	}
	h.broadcast()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *MembersHandler) broadcast() {
	if h.hub != nil {
		h.hub.Broadcast(ws.OutgoingEvent{Type: ws.EventMemberChanged})
	}
}
