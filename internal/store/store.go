package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrTypeMismatch is returned when a key holds a value of a different kind
// than the getter asked for.
var ErrTypeMismatch = errors.New("type mismatch")

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("store closed")

// Reader is the read side of a Store, handed to change listeners.
type Reader interface {
	GetBool(key string, def bool) (bool, error)
	GetInt(key string, def int32) (int32, error)
	GetLong(key string, def int64) (int64, error)
	GetFloat(key string, def float32) (float32, error)
	GetString(key string, def string) (string, error)
	GetAll() map[string]any
	Contains(key string) bool
}

// Listener is called after a key is added, changed or removed. The key is
// empty when the store was cleared. No value is passed; listeners re-read
// what they need from r.
type Listener func(r Reader, key string)

// Subscription identifies a registered Listener.
type Subscription struct {
	ID string
}

type subscriber struct {
	id string
	fn Listener
}

// Option configures a Store.
type Option func(*options)

type options struct {
	async     bool
	queueSize int
	logger    *slog.Logger
}

// WithAsyncWrites enables the background writer used by Editor.Apply.
// Without it Apply persists inline, like Commit.
func WithAsyncWrites(enabled bool) Option {
	return func(o *options) {
		o.async = enabled
	}
}

// WithQueueSize sets the background writer's buffer size.
func WithQueueSize(n int) Option {
	return func(o *options) {
		o.queueSize = n
	}
}

// WithLogger sets the logger used for background write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Store is an in-memory preference map backed by a durable Backend.
// Reads are served from memory. Writes go through an Editor.
type Store struct {
	backend Backend
	logger  *slog.Logger

	mu   sync.RWMutex
	data map[string]any

	lmu       sync.RWMutex
	listeners []subscriber

	commitMu  sync.Mutex
	persistMu sync.Mutex

	wmu    sync.RWMutex
	writer *writer
	closed bool
}

// Open loads the backend's contents and returns a ready Store.
func Open(b Backend, opts ...Option) (*Store, error) {
	o := options{queueSize: 64, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	data, err := b.Load()
	if err != nil {
		return nil, fmt.Errorf("loading preferences: %w", err)
	}
	if data == nil {
		data = make(map[string]any)
	}

	s := &Store{
		backend: b,
		logger:  o.logger,
		data:    data,
	}
	if o.async {
		s.writer = newWriter(s.persistDirect, o.queueSize, o.logger)
		go s.writer.run()
	}
	return s, nil
}

// Backend returns the backend the store persists to.
func (s *Store) Backend() Backend {
	return s.backend
}

// CanApply reports whether Editor.Apply is served by the background writer.
func (s *Store) CanApply() bool {
	s.wmu.RLock()
	defer s.wmu.RUnlock()
	return s.writer != nil && !s.closed
}

func (s *Store) GetBool(key string, def bool) (bool, error) {
	return get(s, key, def, KindBool)
}

func (s *Store) GetInt(key string, def int32) (int32, error) {
	return get(s, key, def, KindInt)
}

func (s *Store) GetLong(key string, def int64) (int64, error) {
	return get(s, key, def, KindLong)
}

func (s *Store) GetFloat(key string, def float32) (float32, error) {
	return get(s, key, def, KindFloat)
}

func (s *Store) GetString(key string, def string) (string, error) {
	return get(s, key, def, KindString)
}

func get[T any](s *Store, key string, def T, want Kind) (T, error) {
	s.mu.RLock()
	v, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return def, nil
	}
	t, ok := v.(T)
	if !ok {
		return def, fmt.Errorf("%w: %s holds %v, not %v", ErrTypeMismatch, key, KindOf(v), want)
	}
	return t, nil
}

// Get returns the raw value stored under key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// GetAll returns a copy of every stored key/value pair.
func (s *Store) GetAll() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data)
}

func (s *Store) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok
}

// Edit returns a new Editor for staging changes.
func (s *Store) Edit() *Editor {
	return &Editor{s: s, modified: make(map[string]any)}
}

// Register adds a change listener.
func (s *Store) Register(fn Listener) Subscription {
	id := uuid.New().String()
	s.lmu.Lock()
	s.listeners = append(s.listeners, subscriber{id: id, fn: fn})
	s.lmu.Unlock()
	return Subscription{ID: id}
}

// Unregister removes a listener. Unknown subscriptions are ignored.
func (s *Store) Unregister(sub Subscription) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	for i, l := range s.listeners {
		if l.id == sub.ID {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *Store) notify(cleared bool, keys []string) {
	s.lmu.RLock()
	ls := make([]subscriber, len(s.listeners))
	copy(ls, s.listeners)
	s.lmu.RUnlock()
	if len(ls) == 0 {
		return
	}

	if cleared {
		for _, l := range ls {
			l.fn(s, "")
		}
	}
	for _, k := range keys {
		for _, l := range ls {
			l.fn(s, k)
		}
	}
}

// Sync blocks until every write queued by Apply is durable.
func (s *Store) Sync(ctx context.Context) error {
	s.wmu.RLock()
	if s.writer == nil || s.closed {
		s.wmu.RUnlock()
		return nil
	}
	done := s.writer.enqueue(nil)
	s.wmu.RUnlock()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reload re-reads the backend and notifies listeners of every key whose
// value differs from memory. Commits are held off while it runs, and writes
// still queued by Apply are made durable first so the backend is current.
func (s *Store) Reload() error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.wmu.RLock()
	if s.closed {
		s.wmu.RUnlock()
		return ErrClosed
	}
	var pending <-chan error
	if s.writer != nil {
		pending = s.writer.enqueue(nil)
	}
	s.wmu.RUnlock()
	if pending != nil {
		<-pending
	}

	s.persistMu.Lock()
	data, err := s.backend.Load()
	s.persistMu.Unlock()
	if err != nil {
		return fmt.Errorf("reloading preferences: %w", err)
	}
	if data == nil {
		data = make(map[string]any)
	}

	s.mu.Lock()
	var changed []string
	for k, v := range data {
		if old, ok := s.data[k]; !ok || !sameValue(old, v) {
			changed = append(changed, k)
		}
	}
	for k := range s.data {
		if _, ok := data[k]; !ok {
			changed = append(changed, k)
		}
	}
	s.data = data
	s.mu.Unlock()

	sort.Strings(changed)
	s.notify(false, changed)
	return nil
}

// Close drains queued writes, stops the writer and closes the backend.
func (s *Store) Close() error {
	s.wmu.Lock()
	if s.closed {
		s.wmu.Unlock()
		return nil
	}
	s.closed = true
	w := s.writer
	s.wmu.Unlock()

	if w != nil {
		w.stop()
	}
	return s.backend.Close()
}

// commit moves e's staged changes into memory and hands them to the
// backend. Commits are serialized so the writer sees mutations in the same
// order they reached memory. wait reports whether to block for a queued write.
// A closed store rejects the edit before memory is touched.
func (s *Store) commit(e *Editor, wait bool) error {
	s.commitMu.Lock()
	s.wmu.RLock()
	if s.closed {
		s.wmu.RUnlock()
		s.commitMu.Unlock()
		e.discard()
		return ErrClosed
	}

	m, cleared, keys, ok := e.commitToMemory()
	if !ok {
		s.wmu.RUnlock()
		s.commitMu.Unlock()
		return nil
	}
	var (
		done <-chan error
		err  error
	)
	if s.writer == nil {
		err = s.persistDirect(m)
	} else {
		done = s.writer.enqueue(&m)
	}
	s.wmu.RUnlock()
	s.commitMu.Unlock()

	if done != nil && wait {
		err = <-done
	}
	s.notify(cleared, keys)
	return err
}

func (s *Store) persistDirect(m Mutation) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if err := s.backend.Persist(m); err != nil {
		return fmt.Errorf("persisting preferences: %w", err)
	}
	return nil
}
