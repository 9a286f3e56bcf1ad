package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// StringSet is an unordered set of strings.
type StringSet map[string]struct{}

// NewStringSet returns a set holding values.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s StringSet) Add(v string) {
	s[v] = struct{}{}
}

func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the members in ascending order.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether s and o hold the same members. A nil set equals an
// empty one.
func (s StringSet) Equal(o StringSet) bool {
	if len(s) != len(o) {
		return false
	}
	for v := range s {
		if !o.Has(v) {
			return false
		}
	}
	return true
}

// EncodeStringSet stores set as a JSON object with one array field named
// after key:
//
//	{"vee_string_set":["String0","String1"]}
//
// Members are written in sorted order.
func EncodeStringSet(key string, set StringSet) (string, error) {
	members := set.Sorted()
	b, err := json.Marshal(map[string][]string{key: members})
	if err != nil {
		return "", fmt.Errorf("%w for %s: %v", ErrEncode, key, err)
	}
	return string(b), nil
}

// DecodeStringSet reverses EncodeStringSet. It reports false when s is not
// valid JSON, has no array under key, or holds a non-string member.
func DecodeStringSet(key, s string) (StringSet, bool) {
	set, err := decodeStringSet(key, s)
	if err != nil {
		return nil, false
	}
	return set, true
}

var errMissingField = errors.New("missing array field")

func decodeStringSet(key, s string) (StringSet, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	raw, ok := obj[key]
	if !ok {
		return nil, fmt.Errorf("%w %q", errMissingField, key)
	}
	var members []string
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, err
	}
	if members == nil {
		// A JSON null is not an array.
		return nil, fmt.Errorf("%w %q", errMissingField, key)
	}
	return NewStringSet(members...), nil
}
