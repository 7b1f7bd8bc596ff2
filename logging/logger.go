// Package logging contains the minimal logger abstraction shared by the scene session, the
// remote AUT client and the scenario runner.
package logging

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

const timestampFormat = "2006-01-02 15:04:05.000"

type Logger interface {
	Printf(message string, args ...interface{})
}

type nullLogger struct{}

func (n nullLogger) Printf(message string, args ...interface{}) {}

func NullLogger() Logger { return nullLogger{} }

// PrefixedLogger returns a Logger that prepends prefix to every message.
func PrefixedLogger(base Logger, prefix string) Logger {
	return LoggerFunc(func(message string, args ...interface{}) {
		base.Printf(prefix+message, args...)
	})
}

// LoggerFunc adapts a function literal to the Logger interface.
type LoggerFunc func(message string, args ...interface{})

func (f LoggerFunc) Printf(message string, args ...interface{}) { f(message, args...) }

type CapturedMessage struct {
	Time    time.Time
	Message string
}

type CapturedOutput []CapturedMessage

// CapturingLogger keeps every message in memory so that it can be shown later, for instance only
// if a test fails.
type CapturingLogger struct {
	output []CapturedMessage
	lock   sync.Mutex
}

func (l *CapturingLogger) Printf(message string, args ...interface{}) {
	l.lock.Lock()
	l.output = append(l.output, CapturedMessage{Time: time.Now(), Message: fmt.Sprintf(message, args...)})
	l.lock.Unlock()
}

func (l *CapturingLogger) Output() CapturedOutput {
	l.lock.Lock()
	ret := append([]CapturedMessage(nil), l.output...)
	l.lock.Unlock()
	return ret
}

func (output CapturedOutput) Dump(dest io.Writer, prefix string) {
	for _, m := range output {
		fmt.Fprintf(dest, "%s[%s] %s\n",
			prefix,
			m.Time.Format(timestampFormat),
			m.Message,
		)
	}
}

// ConsoleLogger writes timestamped lines to a writer. The timestamp is dimmed when colour output
// is enabled.
type ConsoleLogger struct {
	dest  io.Writer
	stamp *color.Color
	lock  sync.Mutex
}

func NewConsoleLogger(dest io.Writer) *ConsoleLogger {
	return &ConsoleLogger{dest: dest, stamp: color.New(color.Faint)}
}

func (l *ConsoleLogger) Printf(message string, args ...interface{}) {
	l.lock.Lock()
	defer l.lock.Unlock()
	_, _ = l.stamp.Fprintf(l.dest, "[%s] ", time.Now().Format(timestampFormat))
	fmt.Fprintf(l.dest, message+"\n", args...)
}
