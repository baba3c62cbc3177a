package telemetry

import (
	"log/slog"

	sloglogrus "github.com/samber/slog-logrus/v2"
	slogmulti "github.com/samber/slog-multi"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	otellog "go.opentelemetry.io/otel/log"
)

var level = new(slog.LevelVar)

// SetLevel changes the level of the default logger, also after SetupLogging.
func SetLevel(l slog.Level) {
	level.Set(l)
	logrus.SetLevel(logrusLevel(l))
}

func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(s))
	return l, err
}

// SetupLogging makes slog write through the logrus standard logger and, when
// provider is not nil, to the otel log pipeline.
func SetupLogging(provider otellog.LoggerProvider) {
	handlers := []slog.Handler{
		sloglogrus.Option{Level: level, Logger: logrus.StandardLogger()}.NewLogrusHandler(),
	}
	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler("polyreduce", otelslog.WithLoggerProvider(provider)))
	}

	slog.SetDefault(slog.New(slogmulti.Fanout(handlers...)))
}

func logrusLevel(l slog.Level) logrus.Level {
	switch {
	case l < slog.LevelInfo:
		return logrus.DebugLevel
	case l < slog.LevelWarn:
		return logrus.InfoLevel
	case l < slog.LevelError:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}
