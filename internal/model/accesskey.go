package model

import "time"

// Role — роль администратора, на которую выписан ключ доступа.
type Role string

const (
	RolePresident        Role = "President"
	RoleVicePresident    Role = "VicePresident"
	RoleGeneralSecretary Role = "GeneralSecretary"
	RoleMediaHead        Role = "MediaHead"
)

// ValidRole проверяет, что роль из списка допустимых.
func ValidRole(r Role) bool {
	switch r {
	case RolePresident, RoleVicePresident, RoleGeneralSecretary, RoleMediaHead:
		return true
	}
	return false
}

// AccessKey — одноразовый ключ доступа, выписанный деканом.
// Токен хранится открытым текстом ради поиска по нему — сознательное
// упрощение: ключ одноразовый и короткоживущий.
type AccessKey struct {
	Token             string     `json:"token"`
	Role              Role       `json:"role"`
	CreatedAt         time.Time  `json:"created_at"`
	ExpiresAt         time.Time  `json:"expires_at"`
	IsUsed            bool       `json:"is_used"`
	UsedAt            *time.Time `json:"used_at,omitempty"`
	IssuedBy          string     `json:"issued_by"`
	DeviceFingerprint *string    `json:"device_fingerprint,omitempty"`
}
