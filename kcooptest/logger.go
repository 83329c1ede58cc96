package kcooptest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/arloliu/kcoop/types"
)

// NewTestLogger creates a logger that writes to the test log.
//
// Output only shows for failed tests or with -v, which keeps consumer and
// producer traces next to the assertion that failed.
func NewTestLogger(t testing.TB) types.Logger {
	return &testLogger{t: t}
}

type testLogger struct {
	t testing.TB
}

var _ types.Logger = (*testLogger)(nil)

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.log("DEBUG", msg, keysAndValues)
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.log("INFO", msg, keysAndValues)
}

func (l *testLogger) Warn(msg string, keysAndValues ...any) {
	l.log("WARN", msg, keysAndValues)
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.log("ERROR", msg, keysAndValues)
}

func (l *testLogger) Fatal(msg string, keysAndValues ...any) {
	l.t.Fatalf("FATAL: %s%s", msg, formatPairs(keysAndValues))
}

func (l *testLogger) log(level, msg string, keysAndValues []any) {
	l.t.Helper()
	l.t.Logf("%s: %s%s", level, msg, formatPairs(keysAndValues))
}

// formatPairs renders key/value pairs as " k=v k=v". An odd trailing value is
// printed under the key "!BADKEY", as slog does.
func formatPairs(keysAndValues []any) string {
	if len(keysAndValues) == 0 {
		return ""
	}

	var b strings.Builder
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 >= len(keysAndValues) {
			fmt.Fprintf(&b, " !BADKEY=%v", keysAndValues[i])
			break
		}
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}

	return b.String()
}
