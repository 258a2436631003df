package index

import (
	"time"

	"github.com/oneconcern/tokenfs/pkg/metrics"
	"go.uber.org/zap"
)

const defaultMaxDepth = 256

type (
	// Option for the index
	Option func(*Index)
)

// WithLogger sets a logger for the index
func WithLogger(l *zap.Logger) Option {
	return func(i *Index) {
		if l != nil {
			i.l = l
		}
	}
}

// WithMetrics enables prometheus metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Index) {
		i.m = m
	}
}

// WithMaxDepth bounds the depth of trees explored when deleting folders or resolving paths
func WithMaxDepth(depth int) Option {
	return func(i *Index) {
		if depth > 0 {
			i.maxDepth = depth
		}
	}
}

// WithClock sets the time source used to stamp root folders
func WithClock(now func() time.Time) Option {
	return func(i *Index) {
		if now != nil {
			i.now = now
		}
	}
}
