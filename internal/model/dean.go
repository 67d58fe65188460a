package model

import "time"

// DeanConfigID — фиксированный id единственной записи dean_config.
const DeanConfigID = "config"

// DeanConfig — единственная запись с учётными данными декана.
// Хэши bcrypt; открытым текстом ничего не хранится. Резервный код
// показывается один раз — в момент генерации.
type DeanConfig struct {
	ID                 string    `json:"id"`
	MasterKeyHash      string    `json:"-"`
	SecurityQuestion   string    `json:"security_question"`
	SecurityAnswerHash string    `json:"-"`
	BackupCodeHash     string    `json:"-"`
	LastChanged        time.Time `json:"last_changed"`
}
