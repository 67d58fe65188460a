package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/middleware"
	"github.com/unionportal/internal/service"
)

// RecoveryHandler — восстановление мастер-ключа: секретный вопрос или резервный код.
type RecoveryHandler struct {
	svc *service.AuthService
}

func NewRecoveryHandler(svc *service.AuthService) *RecoveryHandler {
	return &RecoveryHandler{svc: svc}
}

// Question отдаёт секретный вопрос для формы восстановления (без авторизации).
func (h *RecoveryHandler) Question(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.SecurityQuestion(r.Context())
	if err != nil {
		logger.Errorf("recovery question: %v", err)
		writeError(w, http.StatusInternalServerError, "Ошибка загрузки вопроса")
		return
	}
	if q == "" {
		writeError(w, http.StatusNotFound, "Секретный вопрос не настроен")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"question": q})
}

// Answer принимает ответ на вопрос; при совпадении выдаёт одноразовый токен сброса.
func (h *RecoveryHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tok, err := h.svc.AnswerQuestion(r.Context(), req.Answer, middleware.ClientIP(r))
	if err != nil {
		h.writeChallengeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reset_token": tok})
}

// Backup принимает резервный код; контракт тот же, что у Answer.
func (h *RecoveryHandler) Backup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tok, err := h.svc.SubmitBackupCode(r.Context(), req.Code, middleware.ClientIP(r))
	if err != nil {
		h.writeChallengeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reset_token": tok})
}

func (h *RecoveryHandler) writeChallengeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrRateLimitExceeded):
		writeError(w, http.StatusTooManyRequests, "Слишком много попыток. Попробуйте позже.")
	case errors.Is(err, service.ErrIncorrectAnswer):
		writeError(w, http.StatusUnauthorized, "Неверный ответ")
	default:
		logger.Errorf("recovery challenge: %v", err)
		writeError(w, http.StatusInternalServerError, "Ошибка восстановления")
	}
}

// Reset — финальный шаг: одноразовый токен + новый мастер-ключ.
func (h *RecoveryHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ResetToken   string `json:"reset_token"`
		NewMasterKey string `json:"new_master_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.ResetMasterKey(r.Context(), req.ResetToken, req.NewMasterKey); err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusBadRequest, "Мастер-ключ должен быть не короче 8 символов")
		case errors.Is(err, service.ErrTokenInvalid):
			writeError(w, http.StatusUnauthorized, "Токен сброса недействителен или устарел")
		default:
			logger.Errorf("reset master key: %v", err)
			writeError(w, http.StatusInternalServerError, "Ошибка сброса ключа")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GenerateBackupCode ротирует резервный код (только декан). Старый код
// перестаёт действовать сразу; новый показывается один раз.
func (h *RecoveryHandler) GenerateBackupCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.svc.GenerateBackupCode(r.Context())
	if err != nil {
		logger.Errorf("generate backup code: %v", err)
		writeError(w, http.StatusInternalServerError, "Не удалось сгенерировать код")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"backup_code": code})
}

// UpdateConfig — смена мастер-ключа и/или секретного вопроса из кабинета декана.
func (h *RecoveryHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req service.ConfigUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.UpdateConfig(r.Context(), req); err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusBadRequest, "Проверьте заполнение формы: "+err.Error())
			return
		}
		logger.Errorf("update dean config: %v", err)
		writeError(w, http.StatusInternalServerError, "Ошибка сохранения")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
