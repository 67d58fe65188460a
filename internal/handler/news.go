package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/model"
	"github.com/unionportal/internal/push"
	"github.com/unionportal/internal/repository"
	"github.com/unionportal/internal/ws"
)

// NewsHandler — новости ассоциации. Чтение публичное, запись — под сессией.
type NewsHandler struct {
	repo     *repository.NewsRepository
	hub      *ws.Hub
	notifier *push.Notifier
}

func NewNewsHandler(repo *repository.NewsRepository, hub *ws.Hub, notifier *push.Notifier) *NewsHandler {
	return &NewsHandler{repo: repo, hub: hub, notifier: notifier}
}

// List: публичная лента видит только опубликованное; админка (?all=1 под сессией) — всё.
func (h *NewsHandler) List(w http.ResponseWriter, r *http.Request) {
	publishedOnly := r.URL.Query().Get("all") == ""
	limit := queryInt(r, "limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	list, err := h.repo.List(r.Context(), publishedOnly, limit)
	if err != nil {
		logger.Errorf("news list: %v", err)
		writeError(w, http.StatusInternalServerError, "Ошибка загрузки новостей")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"news": list})
}

func (h *NewsHandler) Get(w http.ResponseWriter, r *http.Request) {
	n, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Новость не найдена")
			return
		}
		logger.Errorf("news get: %v", err)
		writeError(w, http.StatusInternalServerError, "Ошибка загрузки новости")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

type newsRequest struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	ImageURL    string `json:"image_url"`
	IsPublished bool   `json:"is_published"`
}

func (h *NewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req newsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Заголовок обязателен")
		return
	}
	now := time.Now().UTC()
	n := &model.News{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Body:        req.Body,
		ImageURL:    req.ImageURL,
		IsPublished: req.IsPublished,
		CreatedBy:   currentRole(r),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.repo.Create(r.Context(), n); err != nil {
		logger.Errorf("news create: %v", err)
		writeError(w, http.StatusInternalServerError, "Не удалось сохранить новость")
		return
	}
	if n.IsPublished {
		h.announce(n)
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *NewsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req newsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Новость не найдена")
			return
		}
		logger.Errorf("news update load: %v", err)
		writeError(w, http.StatusInternalServerError, "Ошибка загрузки новости")
		return
	}
	wasPublished := n.IsPublished
	n.Title = req.Title
	n.Body = req.Body
	n.ImageURL = req.ImageURL
	n.IsPublished = req.IsPublished
	n.UpdatedAt = time.Now().UTC()
	if err := h.repo.Update(r.Context(), n); err != nil {
		logger.Errorf("news update: %v", err)
		writeError(w, http.StatusInternalServerError, "Не удалось сохранить новость")
		return
	}
	if h.hub != nil {
		h.hub.Broadcast(ws.OutgoingEvent{Type: ws.EventNewsUpdated, Payload: n})
	}
	// Пуш уходит один раз — при первой публикации.
	if n.IsPublished && !wasPublished {
		h.announce(n)
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *NewsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Новость не найдена")
			return
		}
		logger.Errorf("news delete: %v", err)
		writeError(w, http.StatusInternalServerError, "Не удалось удалить новость")
		return
	}
	if h.hub != nil {
		h.hub.Broadcast(ws.OutgoingEvent{Type: ws.EventNewsDeleted, Payload: ws.DeletedPayload{ID: id}})
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *NewsHandler) announce(n *model.News) {
	if h.hub != nil {
		h.hub.Broadcast(ws.OutgoingEvent{Type: ws.EventNewsCreated, Payload: n})
	}
	if h.notifier != nil {
		body := n.Body
		if len(body) > 120 {
			body = body[:117] + "..."
		}
		go h.notifier.Broadcast(context.Background(), push.Payload{
			Title: n.Title,
			Body:  body,
			Data:  map[string]string{"news_id": n.ID},
		})
	}
}
