// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"
	"time"

	"github.com/oneconcern/tokenfs/pkg/metrics"
	"go.uber.org/zap"
)

// Instrument decorates a store with debug logs and latency metrics
func Instrument(l *zap.Logger, m *metrics.Metrics, store Store) Store {
	if l == nil {
		l = zap.NewNop()
	}
	return &instrumentedStore{
		store: store,
		m:     m,
		l:     l.With(zap.String("store", store.String())),
	}
}

type instrumentedStore struct {
	store Store
	m     *metrics.Metrics
	l     *zap.Logger
}

func (i *instrumentedStore) done(op, key string, t0 time.Time, err error) {
	i.m.BlobOp(op, t0)
	if err != nil {
		i.l.Warn("storage "+op+" failed", zap.String("key", key), zap.Error(err))
		return
	}
	i.l.Debug("storage "+op, zap.String("key", key), zap.Duration("elapsed", time.Since(t0)))
}

func (i *instrumentedStore) Has(ctx context.Context, key string) (bool, error) {
	t0 := time.Now()
	has, err := i.store.Has(ctx, key)
	i.done("has", key, t0, err)

	return has, err
}

func (i *instrumentedStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	t0 := time.Now()
	rdr, err := i.store.Get(ctx, key)
	i.done("get", key, t0, err)

	return rdr, err
}

func (i *instrumentedStore) Put(ctx context.Context, key string, rdr io.Reader) error {
	t0 := time.Now()
	err := i.store.Put(ctx, key, rdr)
	i.done("put", key, t0, err)

	return err
}

func (i *instrumentedStore) Delete(ctx context.Context, key string) error {
	t0 := time.Now()
	err := i.store.Delete(ctx, key)
	i.done("delete", key, t0, err)

	return err
}

func (i *instrumentedStore) Keys(ctx context.Context) ([]string, error) {
	t0 := time.Now()
	keys, err := i.store.Keys(ctx)
	i.done("keys", "", t0, err)

	return keys, err
}

func (i *instrumentedStore) Clear(ctx context.Context) error {
	t0 := time.Now()
	err := i.store.Clear(ctx)
	i.done("clear", "", t0, err)

	return err
}

func (i *instrumentedStore) String() string {
	return i.store.String()
}
