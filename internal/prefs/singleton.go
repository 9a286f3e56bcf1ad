package prefs

import (
	"log/slog"
	"sync"

	"github.com/kalambet/simpleprefs/internal/store"
)

// App identifies the application whose default preferences Initialize opens.
type App struct {
	Name    string
	DataDir string
	// Backend is one of the store.Backend* kinds; empty means auto.
	Backend string
	// AsyncWrites lets setters return before the write is durable.
	AsyncWrites bool
	Logger      *slog.Logger
}

var (
	defaultMu    sync.Mutex
	defaultPrefs *Prefs
)

// Initialize opens the default store for app, increments the opened count
// and installs the process-wide instance returned by Default.
// It panics with *UsageError if app is nil or if called twice.
func Initialize(app *App) (*Prefs, error) {
	if app == nil {
		panic(&UsageError{Err: ErrNilApp})
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultPrefs != nil {
		panic(&UsageError{Err: ErrAlreadyInitialized})
	}

	logger := app.Logger
	if logger == nil {
		logger = slog.Default()
	}
	st, err := store.OpenDefault(app.Name, app.DataDir, app.Backend,
		store.WithAsyncWrites(app.AsyncWrites),
		store.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	p, err := Open(st, WithLogger(logger))
	if err != nil {
		st.Close()
		return nil, err
	}
	defaultPrefs = p
	return p, nil
}

// InitializeWithStore is Initialize for a store the caller opened.
func InitializeWithStore(st *store.Store, opts ...Option) (*Prefs, error) {
	if st == nil {
		panic(&UsageError{Err: ErrNilStore})
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultPrefs != nil {
		panic(&UsageError{Err: ErrAlreadyInitialized})
	}

	p, err := Open(st, opts...)
	if err != nil {
		return nil, err
	}
	defaultPrefs = p
	return p, nil
}

// Default returns the process-wide instance. It panics with *UsageError
// before Initialize.
func Default() *Prefs {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultPrefs == nil {
		panic(&UsageError{Err: ErrNotInitialized})
	}
	return defaultPrefs
}
