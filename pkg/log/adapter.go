// Package log holds the logrus setup shared by the binary and the badger logger bridge.
package log

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a text logger writing to out at the named level.
// An unknown level falls back to info and is reported by the second result.
func NewLogger(level string, out io.Writer) (*logrus.Logger, bool) {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})

	ok := true
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = logrus.InfoLevel
		ok = false
	}
	logger.SetLevel(parsed)
	return logger, ok
}

// Discard returns an entry that drops everything, for tests and quiet commands.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// BadgerLogrusAdapter implements badger.Logger on top of logrus.
// Badger's info chatter (compactions, value log replay) is demoted to debug.
type BadgerLogrusAdapter struct {
	*logrus.Entry
}

// NewBadgerLogrusAdapter creates a new adapter
func NewBadgerLogrusAdapter(entry *logrus.Entry) *BadgerLogrusAdapter {
	return &BadgerLogrusAdapter{entry}
}

func (l *BadgerLogrusAdapter) Errorf(f string, v ...interface{})   { l.Entry.Errorf(f, v...) }
func (l *BadgerLogrusAdapter) Warningf(f string, v ...interface{}) { l.Entry.Warningf(f, v...) }
func (l *BadgerLogrusAdapter) Infof(f string, v ...interface{})    { l.Entry.Debugf(f, v...) }
func (l *BadgerLogrusAdapter) Debugf(f string, v ...interface{})   { l.Entry.Tracef(f, v...) }
