package mlog

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var (
	mu     sync.RWMutex
	level  = INFO
	logger = newConsoleLogger(zerolog.InfoLevel)
)

func newConsoleLogger(lv zerolog.Level) zerolog.Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	return zerolog.New(writer).Level(lv).With().Timestamp().Logger()
}

func SetLevel(lv Level) {
	mu.Lock()
	defer mu.Unlock()

	level = lv
	switch lv {
	case DEBUG:
		logger = newConsoleLogger(zerolog.DebugLevel)
	case WARN:
		logger = newConsoleLogger(zerolog.WarnLevel)
	case ERROR:
		logger = newConsoleLogger(zerolog.ErrorLevel)
	default:
		logger = newConsoleLogger(zerolog.InfoLevel)
	}
}

func GetLevel() Level {
	mu.RLock()
	defer mu.RUnlock()

	return level
}

func IsDebug() bool {
	return GetLevel() <= DEBUG
}

func D(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()

	logger.Debug().Msg(fmt.Sprintf(format, args...))
}

func I(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()

	logger.Info().Msg(fmt.Sprintf(format, args...))
}

func W(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()

	logger.Warn().Msg(fmt.Sprintf(format, args...))
}

// WT タイトル付き警告(ユーザー向け通知)
func WT(title string, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()

	logger.Warn().Str("title", title).Msg(fmt.Sprintf(format, args...))
}

func E(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()

	logger.Error().Msg(fmt.Sprintf(format, args...))
}
