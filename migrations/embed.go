// Package migrations предоставляет встроенные SQL-миграции портала (auth и api применяют их при старте).
package migrations

import "embed"

// Files содержит все .sql файлы из этой директории (порядок важен: 001, 002, ...).
//go:embed *.sql
var Files embed.FS
