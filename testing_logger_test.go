package wstask

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// testLogger implements the logger interface on top of an io.Writer. Loggers derived
// with WithField share the writer and its lock, so goroutines can log concurrently.
type testLogger struct {
	mu     *sync.Mutex
	writer io.Writer
	fields map[string]any
}

func newTestLogger(writer io.Writer) logger {
	return &testLogger{
		mu:     &sync.Mutex{},
		writer: writer,
		fields: make(map[string]any),
	}
}

func (l *testLogger) WithField(key string, value any) logger {
	fields := make(map[string]any, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value
	return &testLogger{mu: l.mu, writer: l.writer, fields: fields}
}

func (l *testLogger) log(level, msg string) {
	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(level)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, l.fields[k])
	}
	b.WriteString(": ")
	b.WriteString(strings.TrimSuffix(msg, "\n"))
	b.WriteString("\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.writer, b.String())
}

func (l *testLogger) Debug(args ...any)                 { l.log("DEBUG", fmt.Sprint(args...)) }
func (l *testLogger) Debugf(format string, args ...any) { l.log("DEBUG", fmt.Sprintf(format, args...)) }
func (l *testLogger) Debugln(args ...any)               { l.log("DEBUG", fmt.Sprintln(args...)) }
func (l *testLogger) Info(args ...any)                  { l.log("INFO", fmt.Sprint(args...)) }
func (l *testLogger) Infof(format string, args ...any)  { l.log("INFO", fmt.Sprintf(format, args...)) }
func (l *testLogger) Infoln(args ...any)                { l.log("INFO", fmt.Sprintln(args...)) }
func (l *testLogger) Warn(args ...any)                  { l.log("WARN", fmt.Sprint(args...)) }
func (l *testLogger) Warnf(format string, args ...any)  { l.log("WARN", fmt.Sprintf(format, args...)) }
func (l *testLogger) Warnln(args ...any)                { l.log("WARN", fmt.Sprintln(args...)) }
func (l *testLogger) Error(args ...any)                 { l.log("ERROR", fmt.Sprint(args...)) }
func (l *testLogger) Errorf(format string, args ...any) { l.log("ERROR", fmt.Sprintf(format, args...)) }
func (l *testLogger) Errorln(args ...any)               { l.log("ERROR", fmt.Sprintln(args...)) }

// safeBuffer is a goroutine safe strings.Builder for capturing logs.
type safeBuffer struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}
