package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/model"
	"github.com/unionportal/internal/service"
)

// KeysHandler — выпуск и аудит ключей доступа. Все маршруты под RequireDean.
type KeysHandler struct {
	svc *service.AuthService
}

func NewKeysHandler(svc *service.AuthService) *KeysHandler {
	return &KeysHandler{svc: svc}
}

type createKeyRequest struct {
	Role         model.Role `json:"role"`
	ValidityDays int        `json:"validity_days"`
}

type createKeyResponse struct {
	Token     string     `json:"token"`
	Role      model.Role `json:"role"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Create выписывает одноразовый ключ. Открытый токен отдаётся только в этом ответе.
func (h *KeysHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ValidityDays == 0 {
		req.ValidityDays = 7
	}
	key, err := h.svc.CreateAccessKey(r.Context(), req.Role, req.ValidityDays)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRole):
			writeError(w, http.StatusBadRequest, "Неизвестная роль")
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusBadRequest, "Срок действия должен быть положительным")
		default:
			logger.Errorf("create access key: %v", err)
			writeError(w, http.StatusInternalServerError, "Не удалось создать ключ")
		}
		return
	}
	writeJSON(w, http.StatusCreated, createKeyResponse{Token: key.Token, Role: key.Role, ExpiresAt: key.ExpiresAt})
}

type keyAuditEntry struct {
	TokenMasked string     `json:"token_masked"`
	Role        model.Role `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	IsUsed      bool       `json:"is_used"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
}

// List — аудит выпущенных ключей. Токены маскируются: открытый ключ показывается
// только один раз при выпуске.
func (h *KeysHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.ListAccessKeys(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		logger.Errorf("list access keys: %v", err)
		writeError(w, http.StatusInternalServerError, "Ошибка загрузки ключей")
		return
	}
	entries := make([]keyAuditEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, keyAuditEntry{
			TokenMasked: maskKeyToken(k.Token),
			Role:        k.Role,
			CreatedAt:   k.CreatedAt,
			ExpiresAt:   k.ExpiresAt,
			IsUsed:      k.IsUsed,
			UsedAt:      k.UsedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": entries})
}

func maskKeyToken(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
