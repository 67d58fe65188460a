package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/unionportal/internal/model"
)

// AuthServiceVerify проверяет сессию через микросервис авторизации.
// В prod auth не экспонируется наружу; api ходит к нему по внутренней сети
// и пробрасывает bearer-токен на /internal/verify.
func AuthServiceVerify(authServiceURL string, client *http.Client) func(http.Handler) http.Handler {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := BearerToken(r)
			if tok == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, authServiceURL+"/internal/verify", nil)
			if err != nil {
				http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
				return
			}
			req.Header.Set("Authorization", "Bearer "+tok)
			resp, err := client.Do(req)
			if err != nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			var result struct {
				SessionID string            `json:"session_id"`
				Kind      model.SessionKind `json:"kind"`
				Role      model.Role        `json:"role"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || result.SessionID == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), result.SessionID, result.Kind, result.Role)))
		})
	}
}
