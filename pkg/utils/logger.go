package utils

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// InitLogger builds the JSON logger injected into every component. An empty
// level falls back to LOG_LEVEL and then to info.
func InitLogger(level string) *logrus.Logger {
	logger := logrus.New()

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	logger.SetLevel(ParseLevel(level))
	logger.SetOutput(os.Stdout)
	return logger
}

// ParseLevel maps debug, info, warn and error to logrus levels.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
