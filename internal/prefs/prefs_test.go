package prefs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/kalambet/simpleprefs/internal/store"
)

func newTestPrefs(t *testing.T, opts ...store.Option) (*Prefs, *store.MemoryBackend) {
	t.Helper()
	b := store.NewMemoryBackend()
	st, err := store.Open(b, opts...)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st), b
}

// TestPutGetRoundTrip checks every typed setter against its getter.
func TestPutGetRoundTrip(t *testing.T) {
	p, _ := newTestPrefs(t)

	if err := p.PutBool("vee_bool", true); err != nil {
		t.Fatalf("PutBool: %v", err)
	}
	if err := p.PutFloat("vee_float", 2.3); err != nil {
		t.Fatalf("PutFloat: %v", err)
	}
	if err := p.PutInt("vee_int", 50); err != nil {
		t.Fatalf("PutInt: %v", err)
	}
	if err := p.PutLong("vee_long", 12345678910); err != nil {
		t.Fatalf("PutLong: %v", err)
	}
	if err := p.PutString("vee_string", "demo"); err != nil {
		t.Fatalf("PutString: %v", err)
	}

	if v, err := p.GetBool("vee_bool", false); err != nil || !v {
		t.Errorf("GetBool = %v, %v", v, err)
	}
	if v, err := p.GetFloat("vee_float", 0); err != nil || v != 2.3 {
		t.Errorf("GetFloat = %v, %v", v, err)
	}
	if v, err := p.GetInt("vee_int", -1); err != nil || v != 50 {
		t.Errorf("GetInt = %v, %v", v, err)
	}
	if v, err := p.GetLong("vee_long", -1); err != nil || v != 12345678910 {
		t.Errorf("GetLong = %v, %v", v, err)
	}
	if v, err := p.GetString("vee_string", ""); err != nil || v != "demo" {
		t.Errorf("GetString = %q, %v", v, err)
	}
}

func TestSettersPersistImmediately(t *testing.T) {
	p, b := newTestPrefs(t)

	if err := p.PutInt("vee_int", 50); err != nil {
		t.Fatalf("PutInt: %v", err)
	}
	persisted, _ := b.Load()
	if persisted["vee_int"] != int32(50) {
		t.Errorf("backend vee_int = %v, want 50", persisted["vee_int"])
	}
}

func TestAsyncStoreUsesApply(t *testing.T) {
	p, b := newTestPrefs(t, store.WithAsyncWrites(true))

	if err := p.PutString("k", "v"); err != nil {
		t.Fatalf("PutString: %v", err)
	}
	// Visible to readers before the background write lands.
	if v, _ := p.GetString("k", ""); v != "v" {
		t.Errorf("GetString = %q, want v", v)
	}
	if err := p.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	persisted, _ := b.Load()
	if persisted["k"] != "v" {
		t.Errorf("backend k = %v, want v", persisted["k"])
	}
}

func TestSetterReturnsBackendError(t *testing.T) {
	p, b := newTestPrefs(t)
	boom := errors.New("read-only filesystem")
	b.FailWith(boom)

	err := p.PutBool("vee_bool", true)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if !strings.Contains(err.Error(), "vee_bool") {
		t.Errorf("error %q does not name the key", err)
	}
}

// TestWrongGetterNamesKey reproduces the demo's "wrong data" button.
func TestWrongGetterNamesKey(t *testing.T) {
	p, _ := newTestPrefs(t)
	if err := p.PutString("vee_string", "x"); err != nil {
		t.Fatalf("PutString: %v", err)
	}

	_, err := p.GetBool("vee_string", false)
	var mismatch *TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want *TypeMismatchError", err)
	}
	if mismatch.Key != "vee_string" || mismatch.Expected != "boolean" {
		t.Errorf("mismatch = %+v", mismatch)
	}
	if !errors.Is(err, store.ErrTypeMismatch) {
		t.Error("TypeMismatchError does not unwrap to store.ErrTypeMismatch")
	}
	if got := err.Error(); got != "vee_string's value is not a boolean" {
		t.Errorf("message = %q", got)
	}
}

func TestAbsentKeysReturnDefaults(t *testing.T) {
	p, _ := newTestPrefs(t)

	if v, err := p.GetInt("missing", -1); err != nil || v != -1 {
		t.Errorf("GetInt = %v, %v", v, err)
	}
	if v, err := p.GetLong("missing", -1); err != nil || v != -1 {
		t.Errorf("GetLong = %v, %v", v, err)
	}
	if v, err := p.GetFloat("missing", 1.5); err != nil || v != 1.5 {
		t.Errorf("GetFloat = %v, %v", v, err)
	}
	if v, err := p.GetBool("missing", true); err != nil || !v {
		t.Errorf("GetBool = %v, %v", v, err)
	}
	def := NewStringSet("d")
	got, err := p.GetStringSet("missing", def)
	if err != nil {
		t.Fatalf("GetStringSet: %v", err)
	}
	if !got.Equal(def) {
		t.Errorf("GetStringSet = %v, want default", got)
	}
	if set, err := p.GetStringSet("missing", nil); err != nil || set != nil {
		t.Errorf("GetStringSet nil default = %v, %v", set, err)
	}
}

func TestStringSetRoundTrip(t *testing.T) {
	p, _ := newTestPrefs(t)

	want := NewStringSet()
	for _, s := range []string{"String0", "String1", "String2", "String3", "String4"} {
		want.Add(s)
	}
	if err := p.PutStringSet("vee_string_set", want); err != nil {
		t.Fatalf("PutStringSet: %v", err)
	}

	got, err := p.GetStringSet("vee_string_set", nil)
	if err != nil {
		t.Fatalf("GetStringSet: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("GetStringSet = %v, want %v", got.Sorted(), want.Sorted())
	}

	raw, _ := p.GetString("vee_string_set", "")
	if !strings.HasPrefix(raw, `{"vee_string_set":[`) {
		t.Errorf("persisted encoding = %s", raw)
	}
}

// TestMalformedStringSet covers the silent read policy of GetStringSet and
// the explicit one of LookupStringSet.
func TestMalformedStringSet(t *testing.T) {
	p, _ := newTestPrefs(t)
	if err := p.PutString("vee_string_set", "not json"); err != nil {
		t.Fatalf("PutString: %v", err)
	}

	def := NewStringSet("fallback")
	got, err := p.GetStringSet("vee_string_set", def)
	if err != nil {
		t.Fatalf("GetStringSet: %v", err)
	}
	if !got.Equal(def) {
		t.Errorf("GetStringSet = %v, want default", got)
	}

	_, err = p.LookupStringSet("vee_string_set")
	var malformed *MalformedSetError
	if !errors.As(err, &malformed) {
		t.Fatalf("LookupStringSet err = %v, want *MalformedSetError", err)
	}

	if _, err := p.LookupStringSet("absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LookupStringSet(absent) = %v, want ErrNotFound", err)
	}
}

func TestStringSetOverNonString(t *testing.T) {
	p, _ := newTestPrefs(t)
	if err := p.PutInt("vee_int", 50); err != nil {
		t.Fatalf("PutInt: %v", err)
	}

	_, err := p.GetStringSet("vee_int", nil)
	var mismatch *TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want *TypeMismatchError", err)
	}
	if mismatch.Expected != "string set" {
		t.Errorf("Expected = %q", mismatch.Expected)
	}
}

func TestRemoveClearContains(t *testing.T) {
	p, _ := newTestPrefs(t)
	err := p.Chain().PutInt("a", 1).PutInt("b", 2).Err()
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if !p.Contains("a") {
		t.Fatal("Contains(a) = false")
	}

	if err := p.Remove("a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if p.Contains("a") {
		t.Error("a present after Remove")
	}

	if err := p.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if all := p.GetAll(); len(all) != 0 {
		t.Errorf("GetAll after Clear = %v", all)
	}
}

func TestChainStopsAtFirstError(t *testing.T) {
	p, b := newTestPrefs(t)
	boom := errors.New("boom")

	c := p.Chain().PutInt("a", 1)
	b.FailWith(boom)
	c.PutInt("b", 2)
	b.FailWith(nil)
	c.PutInt("c", 3)

	if !errors.Is(c.Err(), boom) {
		t.Fatalf("Chain.Err = %v, want %v", c.Err(), boom)
	}
	if p.Contains("c") {
		t.Error("chain kept writing after an error")
	}
}

func TestOpenIncrementsOpenedCount(t *testing.T) {
	b := store.NewMemoryBackend()
	for i := int32(1); i <= 3; i++ {
		st, err := store.Open(b)
		if err != nil {
			t.Fatalf("store.Open: %v", err)
		}
		p, err := Open(st)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		n, err := p.AppOpenedCount()
		if err != nil {
			t.Fatalf("AppOpenedCount: %v", err)
		}
		if n != i {
			t.Errorf("opened count = %d, want %d", n, i)
		}
		st.Close()
	}
}

func TestOpenedCountSaturates(t *testing.T) {
	b := store.NewMemoryBackendWith(map[string]any{OpenedCountKey: int32(math.MaxInt32)})
	st, err := store.Open(b)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	p, err := Open(st)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if n, _ := p.AppOpenedCount(); n != math.MaxInt32 {
		t.Errorf("opened count = %d, want MaxInt32", n)
	}
}

func TestOpenFailsOnCorruptCounter(t *testing.T) {
	b := store.NewMemoryBackendWith(map[string]any{OpenedCountKey: "three"})
	st, err := store.Open(b)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	if _, err := Open(st); !errors.Is(err, store.ErrTypeMismatch) {
		t.Errorf("Open err = %v, want type mismatch", err)
	}
}

func TestListenerRelay(t *testing.T) {
	p, _ := newTestPrefs(t)

	var gotKey string
	var gotValue string
	sub := p.Register(func(pp *Prefs, key string) {
		gotKey = key
		gotValue, _ = pp.GetString(key, "")
	})

	if err := p.PutString("vee_string", "UPDATED String"); err != nil {
		t.Fatalf("PutString: %v", err)
	}
	if gotKey != "vee_string" || gotValue != "UPDATED String" {
		t.Errorf("listener got %q=%q", gotKey, gotValue)
	}

	p.Unregister(sub)
	gotKey = ""
	if err := p.PutString("vee_string", "again"); err != nil {
		t.Fatalf("PutString: %v", err)
	}
	if gotKey != "" {
		t.Errorf("listener called after Unregister with %q", gotKey)
	}
}

func TestEnableLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	st, err := store.Open(store.NewMemoryBackend())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()
	p := New(st, WithLogger(logger))

	p.EnableLog(false)
	t.Cleanup(func() { p.EnableLog(false) })
	if p.LogEnabled() {
		t.Fatal("LogEnabled = true after EnableLog(false)")
	}
	if err := p.PutInt("quiet", 1); err != nil {
		t.Fatalf("PutInt: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("logged while disabled: %s", buf.String())
	}

	p.EnableLog(true)
	if err := p.PutInt("loud", 1); err != nil {
		t.Fatalf("PutInt: %v", err)
	}
	if !strings.Contains(buf.String(), "key=loud") {
		t.Errorf("expected write log for loud, got %q", buf.String())
	}
}

func TestPutDispatchesOnType(t *testing.T) {
	p, _ := newTestPrefs(t)

	values := map[string]any{
		"b": true,
		"i": int32(7),
		"l": int64(1) << 40,
		"f": float32(0.5),
		"s": "str",
	}
	for k, v := range values {
		if err := p.Put(k, v); err != nil {
			t.Fatalf("Put(%s): %v", k, err)
		}
	}
	if err := p.Put("set", NewStringSet("x")); err != nil {
		t.Fatalf("Put(set): %v", err)
	}
	if err := p.Put("bad", 3); err == nil {
		t.Error("Put accepted a plain int")
	}

	all := p.GetAll()
	for k, want := range values {
		if all[k] != want {
			t.Errorf("%s = %v (%T), want %v (%T)", k, all[k], all[k], want, want)
		}
	}
	if set, _ := p.GetStringSet("set", nil); !set.Has("x") {
		t.Errorf("set = %v", set)
	}
}

func TestSetterOnClosedStore(t *testing.T) {
	p, _ := newTestPrefs(t)
	if err := p.Store().Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	err := p.PutInt("k", 7)
	if !errors.Is(err, store.ErrClosed) {
		t.Fatalf("PutInt after Close = %v, want store.ErrClosed", err)
	}
	if p.Contains("k") {
		t.Error("k is visible after a rejected write")
	}
	if v, _ := p.GetInt("k", -1); v != -1 {
		t.Errorf("GetInt = %d, want the default", v)
	}
}
