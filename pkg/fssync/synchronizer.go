package fssync

import (
	"context"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/segmentio/ksuid"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/oneconcern/tokenfs/pkg/errors"
	indexstatus "github.com/oneconcern/tokenfs/pkg/index/status"
	"github.com/oneconcern/tokenfs/pkg/resolver"
)

// State of a synchronizer
type State int32

// Synchronizer states
const (
	Idle State = iota
	Scanning
	Watching
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Watching:
		return "watching"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var (
	// ErrStarted indicates an attempt to start a synchronizer twice
	ErrStarted = errors.New("synchronizer already started")

	// ErrStopped indicates an attempt to start a closed synchronizer
	ErrStopped = errors.New("synchronizer stopped")
)

// Event operations, as reported in logs and metrics
const (
	opCreate = "create"
	opWrite  = "write"
	opRemove = "remove"
)

// Synchronizer mirrors the tree of one owner into the index.
type Synchronizer struct {
	*mirror
	id      string
	state   atomic.Int32
	running atomic.Bool

	mx      sync.Mutex
	watcher *fsnotify.Watcher
	watched map[string]struct{}
}

// New synchronizer for the tree of owner
func New(owner string, res *resolver.Resolver, idx Indexer, opts ...Option) (*Synchronizer, error) {
	m, err := newMirror(owner, res, idx, opts)
	if err != nil {
		return nil, err
	}

	s := &Synchronizer{
		mirror:  m,
		id:      ksuid.New().String(),
		watched: make(map[string]struct{}),
	}
	s.l = s.l.With(zap.String("owner", owner), zap.String("sync", s.id))

	return s, nil
}

// State of the synchronizer
func (s *Synchronizer) State() State {
	return State(s.state.Load())
}

// Root physical directory of the mirrored tree
func (s *Synchronizer) Root() string {
	return s.root
}

// Start registers every directory of the owner's tree for watching.
//
// Start does not index anything.
func (s *Synchronizer) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(Idle), int32(Scanning)) {
		if s.State() == Stopped {
			return ErrStopped
		}
		return ErrStarted
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.state.Store(int32(Stopped))
		return fmt.Errorf("creating watcher: %w", err)
	}

	s.mx.Lock()
	if s.State() == Stopped {
		s.mx.Unlock()
		_ = w.Close()
		return ErrStopped
	}
	s.watcher = w
	s.mx.Unlock()

	s.l.Info("scanning", zap.String("root", s.root))
	err = s.walk(ctx, s.root, func(p string, fi os.FileInfo) error {
		if !fi.IsDir() {
			return nil
		}
		return s.watch(p)
	})
	if err != nil {
		s.Close()
		return err
	}

	if !s.state.CompareAndSwap(int32(Scanning), int32(Watching)) {
		return ErrStopped
	}
	s.running.Store(true)
	s.l.Info("scan complete", zap.Int("directories", len(s.Watched())))

	return nil
}

// Run the event loop until Close is called or ctx is done. Run starts the synchronizer
// if this was not done yet.
//
// Run must be called at most once.
func (s *Synchronizer) Run(ctx context.Context) error {
	switch s.State() {
	case Idle:
		if err := s.Start(ctx); err != nil {
			return err
		}
	case Stopped:
		return nil
	}

	s.mx.Lock()
	w := s.watcher
	s.mx.Unlock()
	if w == nil {
		return nil
	}

	for s.running.Load() {
		select {
		case <-ctx.Done():
			s.Close()
			return nil

		case ev, isOpen := <-w.Events:
			if !isOpen {
				return nil
			}
			s.handle(ctx, ev)

		case err, isOpen := <-w.Errors:
			if !isOpen {
				return nil
			}
			// an overflow means lost events, which only a new bulk index pass recovers
			s.l.Warn("watcher error", zap.Error(err))
		}
	}

	return nil
}

// Close stops watching. Close may be called several times, from any goroutine.
func (s *Synchronizer) Close() {
	s.running.Store(false)
	if State(s.state.Swap(int32(Stopped))) == Stopped {
		return
	}

	s.mx.Lock()
	defer s.mx.Unlock()

	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			s.l.Warn("closing watcher", zap.Error(err))
		}
	}
	s.watched = make(map[string]struct{})
	s.m.WatchedDirs(s.owner, 0)
	s.l.Info("stopped")
}

// Watched returns the directories currently registered for watching, sorted
func (s *Synchronizer) Watched() []string {
	s.mx.Lock()
	defer s.mx.Unlock()

	dirs := make([]string, 0, len(s.watched))
	for dir := range s.watched {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	return dirs
}

func (s *Synchronizer) handle(ctx context.Context, ev fsnotify.Event) {
	if ev.Name == "" {
		// late event of a watch already dropped, such as a renamed directory
		s.l.Debug("ignoring event without path", zap.Stringer("op", ev.Op))
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		s.record(opCreate, ev.Name, s.created(ctx, ev.Name))
	case ev.Has(fsnotify.Write):
		s.record(opWrite, ev.Name, s.written(ctx, ev.Name))
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		// a renamed entry reappears as a create event when its new location is watched
		s.record(opRemove, ev.Name, s.removed(ctx, ev.Name))
	default:
		// chmod
	}
}

func (s *Synchronizer) created(ctx context.Context, name string) error {
	fi, err := lstat(s.fs, name)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return s.put(ctx, name, fi)
	}

	// register first: entries created from now on produce their own events,
	// entries created before are picked up by the walk
	if err = s.watch(name); err != nil {
		return err
	}

	var errs error
	err = s.walk(ctx, name, func(p string, fi os.FileInfo) error {
		if fi.IsDir() && p != name {
			errs = multierr.Append(errs, s.watch(p))
		}
		errs = multierr.Append(errs, s.put(ctx, p, fi))
		return nil
	})

	return multierr.Append(err, errs)
}

func (s *Synchronizer) written(ctx context.Context, name string) error {
	fi, err := lstat(s.fs, name)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return nil
	}

	return s.put(ctx, name, fi)
}

func (s *Synchronizer) removed(ctx context.Context, name string) error {
	s.unwatch(name)

	removed, err := s.remove(ctx, name)
	if err != nil {
		return err
	}
	s.l.Debug("removed from index", zap.String("path", name), zap.Int("nodes", removed))

	return nil
}

func (s *Synchronizer) record(op, name string, err error) {
	switch {
	case err == nil:
		s.m.SyncEvent(s.owner, op)
		s.l.Debug("event mirrored", zap.String("op", op), zap.String("path", name))

	case errors.Is(err, iofs.ErrNotExist), errors.Is(err, indexstatus.ErrNotFound):
		// superseded by a later event on the same path
		s.l.Debug("entry already gone", zap.String("op", op), zap.String("path", name))

	case errors.Is(err, context.Canceled):
		// shutting down

	default:
		s.m.SyncDropped(s.owner, op)
		s.l.Warn("event dropped", zap.String("op", op), zap.String("path", name), zap.Error(err))
	}
}

func (s *Synchronizer) watch(dir string) error {
	s.mx.Lock()
	defer s.mx.Unlock()

	if s.watcher == nil || s.State() == Stopped {
		return ErrStopped
	}
	if _, ok := s.watched[dir]; ok {
		return nil
	}
	if err := s.watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	s.watched[dir] = struct{}{}
	s.m.WatchedDirs(s.owner, len(s.watched))

	return nil
}

// unwatch a directory of the tree and all the directories under it.
// Paths outside of the tree are ignored.
func (s *Synchronizer) unwatch(dir string) {
	if !s.contains(dir) {
		return
	}
	dir = filepath.Clean(dir)

	s.mx.Lock()
	defer s.mx.Unlock()

	prefix := dir + string(filepath.Separator)
	for watched := range s.watched {
		if watched != dir && !strings.HasPrefix(watched, prefix) {
			continue
		}
		delete(s.watched, watched)
		// removed directories are dropped by the watcher itself
		_ = s.watcher.Remove(watched)
	}
	s.m.WatchedDirs(s.owner, len(s.watched))
}

// contains tells if p is the root of the tree or lies under it
func (s *Synchronizer) contains(p string) bool {
	if p == "" {
		return false
	}
	p = filepath.Clean(p)

	return p == s.root || strings.HasPrefix(p, s.root+string(filepath.Separator))
}
