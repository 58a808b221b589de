package testutil

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// NewTestLogger creates a logger that discards output (for clean test output).
func NewTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

// NewCapturingLogger creates a discarding debug-level logger whose entries
// are recorded by the returned hook.
func NewCapturingLogger() (*logrus.Logger, *test.Hook) {
	log := NewTestLogger()
	log.SetLevel(logrus.DebugLevel)

	return log, test.NewLocal(log)
}

// Messages returns the messages hook recorded at level.
func Messages(hook *test.Hook, level logrus.Level) []string {
	var msgs []string

	for _, e := range hook.AllEntries() {
		if e.Level == level {
			msgs = append(msgs, e.Message)
		}
	}

	return msgs
}
