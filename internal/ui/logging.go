package ui

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

type LogOptions struct {
	Debug bool
	// JSON switches from the human console format to one JSON object per line.
	JSON bool
}

func NewLogger(out io.Writer, opts LogOptions) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	if opts.JSON {
		return zerolog.New(out).Level(level).With().Timestamp().Logger()
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Logger()
}
