// Package prefs is a convenience facade over a preference store. Typed
// setters persist immediately, string sets are stored as JSON, and the
// number of times the application opened its preferences is counted.
//
//	st, _ := store.OpenDefault("com.example.app", dataDir, store.BackendFile)
//	p, _ := prefs.Open(st)
//	p.PutInt("vee_int", 50)
//	n, err := p.GetInt("vee_int", -1)
//
// Reads of a key through the wrong getter fail with *TypeMismatchError.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/kalambet/simpleprefs/internal/store"
)

// OpenedCountKey is the reserved key holding the opened count.
const OpenedCountKey = "VEE_APP_OPENED_TIMES_COUNT"

// logEnabled toggles verbose logging of reads and writes for every Prefs in
// the process.
var logEnabled atomic.Bool

// Listener is called after key changes. The key is empty when all
// preferences were cleared.
type Listener func(p *Prefs, key string)

// Option configures a Prefs.
type Option func(*Prefs)

// WithLogger sets the logger used when verbose logging is enabled.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prefs) {
		p.logger = logger
	}
}

// Prefs wraps a store.Store with auto-committing typed setters.
type Prefs struct {
	st     *store.Store
	logger *slog.Logger

	edOnce sync.Once
	ed     *store.Editor
}

// New returns a facade over st. It does not touch the opened count.
func New(st *store.Store, opts ...Option) *Prefs {
	p := &Prefs{st: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open returns a facade over st and increments the opened count.
func Open(st *store.Store, opts ...Option) (*Prefs, error) {
	p := New(st, opts...)
	if err := p.incrementAppOpenedCount(); err != nil {
		return nil, err
	}
	return p, nil
}

// Store returns the underlying store.
func (p *Prefs) Store() *store.Store {
	return p.st
}

// EnableLog turns verbose read/write logging on or off process-wide.
func (p *Prefs) EnableLog(enabled bool) {
	logEnabled.Store(enabled)
}

// LogEnabled reports whether verbose logging is on.
func (p *Prefs) LogEnabled() bool {
	return logEnabled.Load()
}

func (p *Prefs) debug(msg string, args ...any) {
	if logEnabled.Load() {
		p.logger.Debug(msg, args...)
	}
}

// editor returns the shared editor, created on first use.
func (p *Prefs) editor() *store.Editor {
	p.edOnce.Do(func() {
		p.ed = p.st.Edit()
	})
	return p.ed
}

// commit persists whatever is staged on the shared editor. The background
// Apply path is used when the store has one, otherwise a blocking Commit.
func (p *Prefs) commit() error {
	ed := p.editor()
	if p.st.CanApply() {
		ed.Apply()
		return nil
	}
	return ed.Commit()
}

// AppOpenedCount returns how many times preferences were opened with Open
// or Initialize.
func (p *Prefs) AppOpenedCount() (int32, error) {
	return p.GetInt(OpenedCountKey, 0)
}

// incrementAppOpenedCount adds one to the opened count, saturating at
// math.MaxInt32.
func (p *Prefs) incrementAppOpenedCount() error {
	n, err := p.AppOpenedCount()
	if err != nil {
		return fmt.Errorf("reading opened count: %w", err)
	}
	p.debug("count before updating", "count", n)
	if n < math.MaxInt32 {
		n++
	}
	if err := p.PutInt(OpenedCountKey, n); err != nil {
		return fmt.Errorf("updating opened count: %w", err)
	}
	return nil
}

// PutBool stores v under key and persists it.
func (p *Prefs) PutBool(key string, v bool) error {
	p.editor().PutBool(key, v)
	return p.written(key, v)
}

// PutInt stores v under key and persists it.
func (p *Prefs) PutInt(key string, v int32) error {
	p.editor().PutInt(key, v)
	return p.written(key, v)
}

// PutLong stores v under key and persists it.
func (p *Prefs) PutLong(key string, v int64) error {
	p.editor().PutLong(key, v)
	return p.written(key, v)
}

// PutFloat stores v under key and persists it.
func (p *Prefs) PutFloat(key string, v float32) error {
	p.editor().PutFloat(key, v)
	return p.written(key, v)
}

// PutString stores v under key and persists it.
func (p *Prefs) PutString(key string, v string) error {
	p.editor().PutString(key, v)
	return p.written(key, v)
}

func (p *Prefs) written(key string, v any) error {
	if err := p.commit(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	p.debug("wrote preference", "key", key, "value", v)
	return nil
}

// Put stores v under key using the setter for its dynamic type: bool,
// int32, int64, float32, string or StringSet.
func (p *Prefs) Put(key string, v any) error {
	switch v := v.(type) {
	case bool:
		return p.PutBool(key, v)
	case int32:
		return p.PutInt(key, v)
	case int64:
		return p.PutLong(key, v)
	case float32:
		return p.PutFloat(key, v)
	case string:
		return p.PutString(key, v)
	case StringSet:
		return p.PutStringSet(key, v)
	default:
		return fmt.Errorf("unsupported value type %T for %s", v, key)
	}
}

// PutStringSet stores values as a JSON-encoded string under key.
func (p *Prefs) PutStringSet(key string, values StringSet) error {
	enc, err := EncodeStringSet(key, values)
	if err != nil {
		return err
	}
	return p.PutString(key, enc)
}

// Remove deletes key.
func (p *Prefs) Remove(key string) error {
	p.editor().Remove(key)
	if err := p.commit(); err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	p.debug("removed preference", "key", key)
	return nil
}

// Clear deletes every preference, the opened count included.
func (p *Prefs) Clear() error {
	p.editor().Clear()
	if err := p.commit(); err != nil {
		return fmt.Errorf("clearing preferences: %w", err)
	}
	p.debug("cleared preferences")
	return nil
}

// GetBool returns the boolean under key, or def when key is absent.
func (p *Prefs) GetBool(key string, def bool) (bool, error) {
	v, err := p.st.GetBool(key, def)
	return v, p.read(key, store.KindBool, v, err)
}

// GetInt returns the int under key, or def when key is absent.
func (p *Prefs) GetInt(key string, def int32) (int32, error) {
	v, err := p.st.GetInt(key, def)
	return v, p.read(key, store.KindInt, v, err)
}

// GetLong returns the long under key, or def when key is absent.
func (p *Prefs) GetLong(key string, def int64) (int64, error) {
	v, err := p.st.GetLong(key, def)
	return v, p.read(key, store.KindLong, v, err)
}

// GetFloat returns the float under key, or def when key is absent.
func (p *Prefs) GetFloat(key string, def float32) (float32, error) {
	v, err := p.st.GetFloat(key, def)
	return v, p.read(key, store.KindFloat, v, err)
}

// GetString returns the string under key, or def when key is absent.
func (p *Prefs) GetString(key string, def string) (string, error) {
	v, err := p.st.GetString(key, def)
	return v, p.read(key, store.KindString, v, err)
}

func (p *Prefs) read(key string, want store.Kind, v any, err error) error {
	if err != nil {
		if errors.Is(err, store.ErrTypeMismatch) {
			return &TypeMismatchError{Key: key, Expected: want.String(), Err: err}
		}
		return err
	}
	p.debug("read preference", "key", key, "value", v)
	return nil
}

// GetStringSet returns the set stored under key, or def when the key is
// absent. A stored value that does not decode as a string set is logged
// (when logging is enabled) and def is returned.
func (p *Prefs) GetStringSet(key string, def StringSet) (StringSet, error) {
	set, err := p.LookupStringSet(key)
	var malformed *MalformedSetError
	switch {
	case errors.Is(err, ErrNotFound):
		return def, nil
	case errors.As(err, &malformed):
		p.debug("malformed string set, using default", "key", key, "error", malformed.Err)
		return def, nil
	case err != nil:
		return def, err
	}
	return set, nil
}

// LookupStringSet returns the set stored under key. Unlike GetStringSet it
// tells the failure modes apart: ErrNotFound, *MalformedSetError, or
// *TypeMismatchError.
func (p *Prefs) LookupStringSet(key string) (StringSet, error) {
	raw, ok := p.st.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	s, ok := raw.(string)
	if !ok {
		return nil, &TypeMismatchError{
			Key:      key,
			Expected: "string set",
			Err:      fmt.Errorf("%w: %s holds %v", store.ErrTypeMismatch, key, store.KindOf(raw)),
		}
	}
	set, err := decodeStringSet(key, s)
	if err != nil {
		return nil, &MalformedSetError{Key: key, Err: err}
	}
	p.debug("read preference", "key", key, "value", s)
	return set, nil
}

// GetAll returns a snapshot of every stored preference.
func (p *Prefs) GetAll() map[string]any {
	return p.st.GetAll()
}

// Contains reports whether key holds a value.
func (p *Prefs) Contains(key string) bool {
	return p.st.Contains(key)
}

// Register adds a change listener on the underlying store.
func (p *Prefs) Register(fn Listener) store.Subscription {
	return p.st.Register(func(_ store.Reader, key string) {
		fn(p, key)
	})
}

// Unregister removes a listener added with Register.
func (p *Prefs) Unregister(sub store.Subscription) {
	p.st.Unregister(sub)
}

// Sync waits until background writes issued by the setters are durable.
func (p *Prefs) Sync(ctx context.Context) error {
	return p.st.Sync(ctx)
}
