// Package zerolog adapts github.com/rs/zerolog to the logger.Logger interface.
package zerolog

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// New builds a root zerolog-backed logger. When jsonFormat is false it logs
// through a console writer with the given timestamp layout.
func New(level, dateTimeLayout string, colored, jsonFormat bool) (*Adapter, error) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logMode, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(logMode)

	var root zerolog.Logger
	if jsonFormat {
		root = log.Output(os.Stdout)
	} else {
		root = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			NoColor:    !colored,
			TimeFormat: dateTimeLayout,
		})
	}

	return &Adapter{&root}, nil
}
