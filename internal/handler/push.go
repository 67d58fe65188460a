package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/model"
	"github.com/unionportal/internal/repository"
)

// PushHandler обрабатывает подписку на Web Push анонсы. Подписка публичная:
// любой посетитель может получать уведомления о новостях и мероприятиях.
type PushHandler struct {
	repo *repository.SubscriptionRepository
}

func NewPushHandler(repo *repository.SubscriptionRepository) *PushHandler {
	return &PushHandler{repo: repo}
}

// subscribeRequest — тело от фронта (subscription из PushManager.getSubscription()).
type subscribeRequest struct {
	Subscription struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	} `json:"subscription"`
}

// Subscribe сохраняет подписку; повторная подписка того же endpoint обновляет ключи.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Subscription.Endpoint == "" || req.Subscription.Keys.P256dh == "" || req.Subscription.Keys.Auth == "" {
		writeError(w, http.StatusBadRequest, "subscription is incomplete")
		return
	}
	sub := &model.PushSubscription{
		Endpoint:  req.Subscription.Endpoint,
		P256dh:    req.Subscription.Keys.P256dh,
		Auth:      req.Subscription.Keys.Auth,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.repo.Upsert(r.Context(), sub); err != nil {
		logger.Errorf("push subscribe: %v", err)
		writeError(w, http.StatusInternalServerError, "Не удалось сохранить подписку")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unsubscribe удаляет подписку по endpoint.
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "endpoint is required")
		return
	}
	if err := h.repo.Delete(r.Context(), req.Endpoint); err != nil {
		logger.Errorf("push unsubscribe: %v", err)
		writeError(w, http.StatusInternalServerError, "Не удалось удалить подписку")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
