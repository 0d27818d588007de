package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	base = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// Init configures the process-wide logger. Unknown levels fall back to info.
func Init(level string, pretty bool) {
	InitWithWriter(level, pretty, os.Stdout)
}

// InitWithWriter is Init with an explicit sink, used by tests.
func InitWithWriter(level string, pretty bool, w io.Writer) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := w
	if pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	mu.Lock()
	base = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	mu.Unlock()
}

func Debug(msg string, keysAndValues ...any) {
	write(zerolog.DebugLevel, msg, keysAndValues)
}

func Info(msg string, keysAndValues ...any) {
	write(zerolog.InfoLevel, msg, keysAndValues)
}

func Warn(msg string, keysAndValues ...any) {
	write(zerolog.WarnLevel, msg, keysAndValues)
}

func Error(msg string, keysAndValues ...any) {
	write(zerolog.ErrorLevel, msg, keysAndValues)
}

func write(level zerolog.Level, msg string, keysAndValues []any) {
	mu.RLock()
	l := base
	mu.RUnlock()

	event := l.WithLevel(level)
	if event == nil {
		return
	}

	// A lone trailing value (usually an error) is logged under "error".
	if len(keysAndValues)%2 == 1 {
		last := keysAndValues[len(keysAndValues)-1]
		keysAndValues = keysAndValues[:len(keysAndValues)-1]
		addField(event, "error", last)
	}

	for i := 0; i < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		addField(event, key, keysAndValues[i+1])
	}

	event.Msg(msg)
}

func addField(event *zerolog.Event, key string, value any) {
	switch v := value.(type) {
	case error:
		event.AnErr(key, v)
	case fmt.Stringer:
		event.Str(key, v.String())
	default:
		event.Interface(key, v)
	}
}
