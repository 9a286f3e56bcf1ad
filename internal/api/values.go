package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/kalambet/simpleprefs/internal/prefs"
	"github.com/kalambet/simpleprefs/internal/store"
)

// typeStringSet names the JSON-encoded string set, which is stored as a
// plain string but read and written through its own facade calls.
const typeStringSet = "string_set"

var errBadRequest = errors.New("bad request")

// Entry is a typed value as exposed over HTTP and MCP.
type Entry struct {
	Type  string `json:"type" yaml:"type"`
	Value any    `json:"value" yaml:"value"`
	Found *bool  `json:"found,omitempty" yaml:"found,omitempty"`
}

func entryOf(v any) Entry {
	return Entry{Type: store.KindOf(v).String(), Value: wireValue(v)}
}

// wireValue replaces non-finite floats, which JSON cannot carry, with their
// text form.
func wireValue(v any) any {
	if f, ok := v.(float32); ok && (math.IsNaN(float64(f)) || math.IsInf(float64(f), 0)) {
		return store.FormatValue(f)
	}
	return v
}

// Entries tags every value of a GetAll snapshot with its kind.
func Entries(all map[string]any) map[string]Entry {
	out := make(map[string]Entry, len(all))
	for k, v := range all {
		out[k] = entryOf(v)
	}
	return out
}

// ReadTyped reads key through the facade getter for typ. def is the textual
// default used when key is absent; empty means the zero value.
func ReadTyped(p *prefs.Prefs, typ, key, def string) (Entry, error) {
	found := p.Contains(key)
	if typ == typeStringSet {
		set, err := p.GetStringSet(key, nil)
		if err != nil {
			return Entry{}, err
		}
		members := set.Sorted()
		if members == nil {
			members = []string{}
		}
		return Entry{Type: typ, Value: members, Found: &found}, nil
	}

	k, err := store.ParseKind(typ)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	var defVal any
	if def != "" {
		if defVal, err = store.ParseValue(k, def); err != nil {
			return Entry{}, fmt.Errorf("%w: default %q is not a valid %v", errBadRequest, def, k)
		}
	}

	var v any
	switch k {
	case store.KindBool:
		d, _ := defVal.(bool)
		v, err = p.GetBool(key, d)
	case store.KindInt:
		d, _ := defVal.(int32)
		v, err = p.GetInt(key, d)
	case store.KindLong:
		d, _ := defVal.(int64)
		v, err = p.GetLong(key, d)
	case store.KindFloat:
		d, _ := defVal.(float32)
		v, err = p.GetFloat(key, d)
	case store.KindString:
		d, _ := defVal.(string)
		v, err = p.GetString(key, d)
	}
	if err != nil {
		return Entry{}, err
	}
	return Entry{Type: k.String(), Value: wireValue(v), Found: &found}, nil
}

// decodeTyped turns a JSON value into something prefs.Put accepts.
func decodeTyped(typ string, raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: value is required", errBadRequest)
	}
	if typ == typeStringSet {
		var members []string
		if err := json.Unmarshal(raw, &members); err != nil {
			return nil, fmt.Errorf("%w: string_set value must be an array of strings", errBadRequest)
		}
		return prefs.NewStringSet(members...), nil
	}
	k, err := store.ParseKind(typ)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	v, err := store.DecodeJSONValue(k, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: value is not a valid %v: %v", errBadRequest, k, err)
	}
	return v, nil
}

// ParseTyped is decodeTyped for textual input, as sent by MCP clients and
// the command line. members is only used for string_set.
func ParseTyped(typ, value string, members []string) (any, error) {
	if typ == typeStringSet {
		return prefs.NewStringSet(members...), nil
	}
	k, err := store.ParseKind(typ)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	v, err := store.ParseValue(k, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a valid %v", errBadRequest, value, k)
	}
	return v, nil
}
