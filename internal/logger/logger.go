package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

type Entry = logrus.Entry

type Fields = logrus.Fields

// Init настраивает глобальный логгер. format: "json" (по умолчанию) или "text".
// Переменная окружения DEBUG=true включает уровень debug независимо от level.
func Init(level, format string) {
	Log.SetFormatter(formatter(format))
	Log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	if os.Getenv("DEBUG") == "true" {
		lvl = logrus.DebugLevel
	}
	Log.SetLevel(lvl)
}

func formatter(format string) logrus.Formatter {
	if format == "text" {
		return &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		}
	}
	return &logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	}
}

// Component возвращает запись логгера с полем service.
func Component(name string) *Entry {
	return Log.WithField("service", name)
}

// Discard отключает вывод, используется в тестах.
func Discard() {
	Log.SetOutput(io.Discard)
}
