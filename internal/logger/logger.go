package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. Components receive it as an injected
// capability instead of reaching for a package-level singleton, so tests
// can substitute a no-op implementation.
func New(level string) (*logrus.Logger, error) {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logLevel)
	log.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "15:04:05",
		FullTimestamp:   true,
	})
	return log, nil
}
