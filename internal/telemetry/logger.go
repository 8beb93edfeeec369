package telemetry

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/vmportal/internal/config"
)

// OTELHook adds trace and span IDs to log events carrying a span context.
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return
	}

	e.Str("trace_id", sc.TraceID().String())
	e.Str("span_id", sc.SpanID().String())
}

// NewLogger builds a logger from cfg writing to w.
func NewLogger(cfg config.LogConfig, service string, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, err
	}

	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(OTELHook{}), nil
}

// SetupGlobalLogger installs a logger built from cfg as log.Logger.
func SetupGlobalLogger(cfg config.LogConfig, service string, w io.Writer) error {
	logger, err := NewLogger(cfg, service, w)
	if err != nil {
		return err
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = logger
	return nil
}
