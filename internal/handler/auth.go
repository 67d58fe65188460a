package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/middleware"
	"github.com/unionportal/internal/model"
	"github.com/unionportal/internal/service"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type loginRequest struct {
	Credential string `json:"credential"`
	DeviceInfo string `json:"device_info,omitempty"`
}

// Login — единая форма входа: ключ доступа или мастер-ключ декана.
// Какой именно тип учётных данных не подошёл — клиенту не сообщается.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.Login(r.Context(), req.Credential, req.DeviceInfo, middleware.ClientIP(r))
	if err != nil {
		h.writeLoginError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeanLogin — явный вход декана (форма кабинета принимает только мастер-ключ).
func (h *AuthHandler) DeanLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MasterKey  string `json:"master_key"`
		DeviceInfo string `json:"device_info,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.DeanLogin(r.Context(), req.MasterKey, req.DeviceInfo, middleware.ClientIP(r))
	if err != nil {
		h.writeLoginError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) writeLoginError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "Введите ключ доступа")
	case errors.Is(err, service.ErrExpired):
		writeError(w, http.StatusUnauthorized, "Срок действия ключа истёк")
	case errors.Is(err, service.ErrAlreadyUsed):
		writeError(w, http.StatusUnauthorized, "Ключ уже был использован")
	case errors.Is(err, service.ErrInvalidCredential):
		writeError(w, http.StatusUnauthorized, "Неверный ключ доступа")
	default:
		logger.Errorf("login: %v", err)
		writeError(w, http.StatusInternalServerError, "Ошибка входа")
	}
}

// Verify возвращает идентичность текущей сессии (после SessionAuth).
// Клиент дергает его при загрузке страницы, чтобы проверить сохранённый токен.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": middleware.GetSessionID(r.Context()),
		"kind":       middleware.GetKind(r.Context()),
		"role":       middleware.GetRole(r.Context()),
	})
}

// InternalVerify — то же, что Verify, но для вызовов api-сервиса
// (маршрут закрыт middleware.InternalOnly).
func (h *AuthHandler) InternalVerify(w http.ResponseWriter, r *http.Request) {
	tok := middleware.BearerToken(r)
	if tok == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sess, err := h.svc.Verify(r.Context(), tok)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		logger.Errorf("internal verify: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"kind":       sess.Kind,
		"role":       sess.Role,
	})
}

// Logout отзывает собственную сессию. Повторный вызов — no-op.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	kind := middleware.GetKind(r.Context())
	sessionID := middleware.GetSessionID(r.Context())
	if sessionID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Logout(r.Context(), kind, sessionID); err != nil {
		logger.Errorf("logout session=%s: %v", middleware.MaskSessionID(sessionID), err)
		writeError(w, http.StatusInternalServerError, "Ошибка выхода")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// currentRole — подпись "кем создано" для контента: роль admin-сессии или Dean.
func currentRole(r *http.Request) string {
	if middleware.GetKind(r.Context()) == model.SessionDean {
		return "Dean"
	}
	return string(middleware.GetRole(r.Context()))
}
