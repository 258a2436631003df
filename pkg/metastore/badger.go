package metastore

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dgraph-io/badger/v3"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/oneconcern/tokenfs/pkg/errors"
	"github.com/oneconcern/tokenfs/pkg/model"
)

const (
	sep = byte(0)

	// indexedField is maintained in a secondary index
	indexedField = model.MetaParentToken
)

var (
	nodePref  = []byte{'n', sep}
	indexPref = []byte{'p', sep}
)

type (
	// Option for the badger store
	Option func(*badgerOptions)

	badgerOptions struct {
		l        *zap.Logger
		inMemory bool
	}

	badgerStore struct {
		*badger.DB
		dir    string
		closed atomic.Bool
		close  sync.Once
	}

	// badgerLogger routes badger's own logs to zap
	badgerLogger struct {
		*zap.SugaredLogger
	}
)

// WithLogger sets a logger for the store
func WithLogger(l *zap.Logger) Option {
	return func(o *badgerOptions) {
		if l != nil {
			o.l = l
		}
	}
}

// WithInMemory keeps all data in memory. The directory is ignored.
func WithInMemory(enabled bool) Option {
	return func(o *badgerOptions) {
		o.inMemory = enabled
	}
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}

// Open a badger backed metadata store in dir
func Open(dir string, opts ...Option) (Store, error) {
	o := &badgerOptions{
		l: zap.NewNop(),
	}
	for _, apply := range opts {
		apply(o)
	}

	bopts := badger.DefaultOptions(dir).
		WithLogger(badgerLogger{SugaredLogger: o.l.Named("badger").Sugar()}).
		WithLoggingLevel(badger.WARNING)

	if o.inMemory {
		bopts = bopts.WithDir("").WithValueDir("").WithInMemory(true)
	} else if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("metastore: mkdir: %w", err)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open metastore: %w", err)
	}

	return &badgerStore{
		DB:  db,
		dir: dir,
	}, nil
}

// OpenInMemory opens a volatile store, mostly useful for tests
func OpenInMemory(opts ...Option) (Store, error) {
	return Open("", append(opts, WithInMemory(true))...)
}

func (s *badgerStore) String() string {
	if s.dir == "" {
		return "badger@memory"
	}
	return "badger@" + s.dir
}

func (s *badgerStore) Close() error {
	var err error
	s.close.Do(func() {
		s.closed.Store(true)
		err = s.DB.Close()
	})
	return err
}

func (s *badgerStore) Put(ctx context.Context, owner, key string, md model.Metadata) error {
	if err := s.check(ctx, owner, key); err != nil {
		return err
	}

	data, err := jsoniter.Marshal(md)
	if err != nil {
		return fmt.Errorf("metastore: encode %q: %w", key, err)
	}
	pk := nodeKey(owner, key)

	return s.retryUpdate(func(txn *badger.Txn) error {
		previous, err := getRecord(txn, pk)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		case previous[indexedField] != md[indexedField]:
			if err := txn.Delete(indexKey(owner, previous[indexedField], key)); err != nil {
				return err
			}
		}

		if err := txn.Set(pk, data); err != nil {
			return err
		}
		return txn.Set(indexKey(owner, md[indexedField], key), nil)
	})
}

func (s *badgerStore) Get(ctx context.Context, owner, key string) (model.Metadata, error) {
	if err := s.check(ctx, owner, key); err != nil {
		return nil, err
	}

	var md model.Metadata
	err := s.DB.View(func(txn *badger.Txn) error {
		var e error
		md, e = getRecord(txn, nodeKey(owner, key))
		return e
	})
	if err != nil {
		return nil, err
	}
	return md, nil
}

func (s *badgerStore) Delete(ctx context.Context, owner string, keys ...string) (int, error) {
	if err := s.checkOwner(ctx, owner); err != nil {
		return 0, err
	}

	var removed int
	for next := 0; next < len(keys); {
		var batch, done int

		// each transaction removes as many keys as fit, starting at next
		err := s.retryUpdate(func(txn *badger.Txn) error {
			batch, done = 0, next
			for ; done < len(keys); done++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if keys[done] == "" {
					continue
				}

				ok, err := s.deleteInTxn(txn, owner, keys[done])
				if errors.Is(err, badger.ErrTxnTooBig) && done > next {
					return nil
				}
				if err != nil {
					return err
				}
				if ok {
					batch++
				}
			}
			return nil
		})
		if err != nil {
			return removed, err
		}

		removed += batch
		next = done
	}

	return removed, nil
}

func (s *badgerStore) deleteInTxn(txn *badger.Txn, owner, key string) (bool, error) {
	pk := nodeKey(owner, key)
	previous, err := getRecord(txn, pk)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := txn.Delete(indexKey(owner, previous[indexedField], key)); err != nil {
		return false, err
	}
	if err := txn.Delete(pk); err != nil {
		return false, err
	}
	return true, nil
}

func (s *badgerStore) Query(ctx context.Context, owner string, pred Predicate) ([]model.Metadata, error) {
	if err := s.checkOwner(ctx, owner); err != nil {
		return nil, err
	}

	var result []model.Metadata
	err := s.DB.View(func(txn *badger.Txn) error {
		if pred.isEquality() && pred.Field == indexedField {
			return s.scanIndex(ctx, txn, owner, pred.Value, func(md model.Metadata) {
				result = append(result, md)
			})
		}

		return scanNodes(ctx, txn, owner, func(md model.Metadata) {
			if pred.Apply(md) {
				result = append(result, md)
			}
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *badgerStore) scanIndex(ctx context.Context, txn *badger.Txn, owner, value string, yield func(model.Metadata)) error {
	prefix := indexKey(owner, value, "")
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	iter := txn.NewIterator(opts)
	defer iter.Close()

	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := string(iter.Item().Key()[len(prefix):])
		md, err := getRecord(txn, nodeKey(owner, key))
		if errors.Is(err, ErrNotFound) {
			// dangling index entry
			continue
		}
		if err != nil {
			return err
		}
		yield(md)
	}
	return nil
}

func scanNodes(ctx context.Context, txn *badger.Txn, owner string, yield func(model.Metadata)) error {
	prefix := nodeKey(owner, "")
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := txn.NewIterator(opts)
	defer iter.Close()

	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		md, err := decodeItem(iter.Item())
		if err != nil {
			return err
		}
		yield(md)
	}
	return nil
}

// retryUpdate runs an update transaction, retried on conflicts with concurrent writers
func (s *badgerStore) retryUpdate(fn func(*badger.Txn) error) error {
	return backoff.Retry(func() error {
		err := s.DB.Update(fn)
		if err == nil || errors.Is(err, badger.ErrConflict) {
			return err // retry on conflict
		}
		return backoff.Permanent(err)
	},
		backoff.WithMaxRetries(backoff.NewConstantBackOff(10*time.Millisecond), 100),
	)
}

func (s *badgerStore) check(ctx context.Context, owner, key string) error {
	if err := s.checkOwner(ctx, owner); err != nil {
		return err
	}
	if key == "" || strings.IndexByte(key, sep) >= 0 {
		return ErrInvalidKey.Wrapf("key %q", key)
	}
	return nil
}

func (s *badgerStore) checkOwner(ctx context.Context, owner string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if owner == "" || strings.IndexByte(owner, sep) >= 0 {
		return ErrInvalidKey.Wrapf("owner %q", owner)
	}
	return nil
}

func getRecord(txn *badger.Txn, key []byte) (model.Metadata, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeItem(item)
}

func decodeItem(item *badger.Item) (model.Metadata, error) {
	var md model.Metadata
	err := item.Value(func(val []byte) error {
		return jsoniter.Unmarshal(val, &md)
	})
	if err != nil {
		return nil, fmt.Errorf("metastore: decode %q: %w", item.Key(), err)
	}
	return md, nil
}

func nodeKey(owner, key string) []byte {
	k := make([]byte, 0, len(nodePref)+len(owner)+len(key)+1)
	k = append(k, nodePref...)
	k = append(k, owner...)
	k = append(k, sep)
	return append(k, key...)
}

func indexKey(owner, value, key string) []byte {
	k := make([]byte, 0, len(indexPref)+len(owner)+len(value)+len(key)+2)
	k = append(k, indexPref...)
	k = append(k, owner...)
	k = append(k, sep)
	k = append(k, value...)
	k = append(k, sep)
	return append(k, key...)
}
