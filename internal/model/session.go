package model

import "time"

// SessionKind различает таблицы admin_sessions и dean_sessions.
type SessionKind string

const (
	SessionAdmin SessionKind = "admin"
	SessionDean  SessionKind = "dean"
)

// Session — запись о входе администратора или декана. Не удаляется
// физически: при выходе или отзыве проставляется revoked_at (аудит).
type Session struct {
	ID             string      `json:"id"`
	Kind           SessionKind `json:"kind"`
	Role           Role        `json:"role"`
	AccessKeyToken *string     `json:"access_key_token,omitempty"`
	DeviceInfo     string      `json:"device_info"`
	IPAddress      string      `json:"ip_address"`
	CreatedAt      time.Time   `json:"created_at"`
	LastSeenAt     time.Time   `json:"last_seen_at"`
	RevokedAt      *time.Time  `json:"revoked_at,omitempty"`
}

// IsActive — сессия жива, пока не отозвана.
func (s *Session) IsActive() bool { return s.RevokedAt == nil }
