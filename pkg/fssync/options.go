package fssync

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/oneconcern/tokenfs/pkg/metrics"
)

type (
	// Option for synchronizers and bulk index passes
	Option func(*options)

	options struct {
		l  *zap.Logger
		fs afero.Fs
		m  *metrics.Metrics
	}
)

func defaultOptions(opts []Option) *options {
	o := &options{
		l:  zap.NewNop(),
		fs: afero.NewOsFs(),
	}
	for _, apply := range opts {
		apply(o)
	}
	return o
}

// WithLogger sets a logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.l = l
		}
	}
}

// WithFs sets the file system used to stat and read the watched tree.
//
// It must resolve the same physical paths as the OS, since fsnotify watches the OS file system.
// Defaults to afero.NewOsFs().
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		if fs != nil {
			o.fs = fs
		}
	}
}

// WithMetrics enables prometheus metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.m = m
	}
}
