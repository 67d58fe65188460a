package middleware

import (
	"net/http"
	"strings"

	"github.com/unionportal/internal/model"
	"github.com/unionportal/internal/service"
)

// BearerToken достаёт токен из Authorization: Bearer <token>.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// SessionAuth проверяет bearer-токен через AuthService: подпись плюс живость
// сессии в хранилище. Отозванная сессия не проходит независимо от подписи.
func SessionAuth(svc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := BearerToken(r)
			if tok == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			sess, err := svc.Verify(r.Context(), tok)
			if err != nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), sess.ID, sess.Kind, sess.Role)))
		})
	}
}

// RequireDean пропускает только dean-сессии. Вешается после SessionAuth
// (или AuthServiceVerify) на маршруты кабинета декана.
func RequireDean(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetKind(r.Context()) != model.SessionDean {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
