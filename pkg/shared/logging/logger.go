package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
)

// NewLogger builds a go-logr Logger backed by a zap production (or
// development, when debug is true) logger. Every component in the triage
// pipeline takes a logr.Logger rather than a concrete zap type, so it can
// be swapped or discarded (logr.Discard()) in tests without touching call
// sites.
func NewLogger(debug bool) (logr.Logger, error) {
	var zl *zap.Logger
	var err error
	if debug {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return logr.Logger{}, err
	}
	return zapr.NewLogger(zl), nil
}
