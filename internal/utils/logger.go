package utils

import (
	"os" // Log output

	"github.com/sirupsen/logrus" // Structured logging
)

// NewLogger builds the process logger: JSON in production, readable text otherwise
func NewLogger(level string, prod bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if prod {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel // Unknown names fall back to info
	}
	log.SetLevel(lvl)
	return log
}
