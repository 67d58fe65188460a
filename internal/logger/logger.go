// Package logger реализует логирование с префиксом сервиса и асинхронной записью:
// сообщение уходит в фоновую горутину и не блокирует обработку запроса.
// Поддерживаются уровни (debug/info/warn/error) и замер времени выполнения функций.
package logger

import (
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	queueSize = 8192
	// Порог медленного вызова для LogDuration при LOG_LEVEL=info.
	slowThreshold = 100 * time.Millisecond
)

type level int32

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

var (
	prefix  string
	minLvl  atomic.Int32
	queue   chan string
	started sync.Once
	dropped atomic.Int64
)

func startWorker() {
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "trace":
		minLvl.Store(int32(levelDebug))
	default:
		minLvl.Store(int32(levelInfo))
	}
	queue = make(chan string, queueSize)
	go func() {
		for msg := range queue {
			log.Print(msg)
			if n := dropped.Swap(0); n > 0 {
				log.Printf("%slogger: потеряно %d сообщений (буфер переполнен)", tag(), n)
			}
		}
	}()
}

// emit ставит сообщение в очередь. При переполнении буфера сообщение
// отбрасывается, а счётчик потерь выводится при следующей записи.
func emit(lvl level, msg string) {
	started.Do(startWorker)
	if lvl < level(minLvl.Load()) {
		return
	}
	select {
	case queue <- msg:
	default:
		dropped.Add(1)
	}
}

// SetPrefix задаёт префикс всех последующих логов (например "api", "auth").
// Вызывается один раз в начале main, до первой записи.
func SetPrefix(p string) {
	prefix = p
}

func tag() string {
	if prefix == "" {
		return ""
	}
	return "[" + prefix + "] "
}

// Debugf пишет отладочное сообщение (видно только при LOG_LEVEL=debug).
func Debugf(format string, v ...any) {
	emit(levelDebug, tag()+"DEBUG: "+fmt.Sprintf(format, v...))
}

// Info пишет информационное сообщение.
func Info(v ...any) {
	emit(levelInfo, tag()+fmt.Sprint(v...))
}

// Infof форматирует и пишет информационное сообщение.
func Infof(format string, v ...any) {
	emit(levelInfo, tag()+fmt.Sprintf(format, v...))
}

// Warnf пишет предупреждение: сервис работает, но конфигурация или окружение требуют внимания.
func Warnf(format string, v ...any) {
	emit(levelWarn, tag()+"WARN: "+fmt.Sprintf(format, v...))
}

// Error пишет ошибку.
func Error(v ...any) {
	emit(levelError, tag()+"ERROR: "+fmt.Sprint(v...))
}

// Errorf форматирует и пишет ошибку.
func Errorf(format string, v ...any) {
	emit(levelError, tag()+"ERROR: "+fmt.Sprintf(format, v...))
}

// LogDuration логирует имя функции и время выполнения в миллисекундах.
// При LOG_LEVEL=info логируются только вызовы дольше slowThreshold; при debug — все.
func LogDuration(fn string, start time.Time) {
	started.Do(startWorker)
	elapsed := time.Since(start)
	if level(minLvl.Load()) == levelDebug || elapsed >= slowThreshold {
		emit(levelInfo, fmt.Sprintf("%sfn=%s duration_ms=%d", tag(), fn, elapsed.Milliseconds()))
	}
}

// DeferLogDuration возвращает функцию для defer:
// defer logger.DeferLogDuration("HandlerName", time.Now())().
func DeferLogDuration(fn string, start time.Time) func() {
	return func() { LogDuration(fn, start) }
}
