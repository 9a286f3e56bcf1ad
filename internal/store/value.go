package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the type of a stored preference value.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindLong
	KindFloat
	KindString
)

var kindNames = map[Kind]string{
	KindBool:   "boolean",
	KindInt:    "int",
	KindLong:   "long",
	KindFloat:  "float",
	KindString: "string",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "invalid"
}

// ParseKind maps a kind name ("boolean", "bool", "int", "long", "float",
// "string") to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "boolean", "bool":
		return KindBool, nil
	case "int", "int32":
		return KindInt, nil
	case "long", "int64":
		return KindLong, nil
	case "float", "float32":
		return KindFloat, nil
	case "string":
		return KindString, nil
	}
	return KindInvalid, fmt.Errorf("unknown kind %q", s)
}

// KindOf reports the Kind of a value held by the store.
func KindOf(v any) Kind {
	switch v.(type) {
	case bool:
		return KindBool
	case int32:
		return KindInt
	case int64:
		return KindLong
	case float32:
		return KindFloat
	case string:
		return KindString
	}
	return KindInvalid
}

var errInvalidValue = errors.New("invalid value")

// ParseValue converts the textual form of a value into the Go type used for
// kind k. It is the inverse of FormatValue.
func ParseValue(k Kind, s string) (any, error) {
	switch k {
	case KindBool:
		return strconv.ParseBool(s)
	case KindInt:
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, err
		}
		return int32(i), nil
	case KindLong:
		return strconv.ParseInt(s, 10, 64)
	case KindFloat:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, err
		}
		return float32(f), nil
	case KindString:
		return s, nil
	}
	return nil, fmt.Errorf("%w: kind %v", errInvalidValue, k)
}

// FormatValue renders a stored value as text.
func FormatValue(v any) string {
	switch val := v.(type) {
	case bool:
		return strconv.FormatBool(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case string:
		return val
	}
	return fmt.Sprintf("%v", v)
}

// EncodeJSONValue is the inverse of DecodeJSONValue. JSON has no NaN or
// infinities, so non-finite floats are written as the strings "NaN", "+Inf"
// and "-Inf".
func EncodeJSONValue(v any) (json.RawMessage, error) {
	if f, ok := v.(float32); ok && !isFinite(f) {
		return json.Marshal(FormatValue(f))
	}
	return json.Marshal(v)
}

func isFinite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

// sameValue reports whether a and b are the same stored value. Floats are
// compared by bit pattern so that NaN equals itself.
func sameValue(a, b any) bool {
	fa, ok := a.(float32)
	if !ok {
		return a == b
	}
	fb, ok := b.(float32)
	return ok && math.Float32bits(fa) == math.Float32bits(fb)
}

// DecodeJSONValue converts a raw JSON value into the Go type
// for kind k. Numbers arrive as json.Number so that 64-bit longs survive.
// A float may also arrive quoted, as written by EncodeJSONValue.
func DecodeJSONValue(k Kind, raw json.RawMessage) (any, error) {
	switch k {
	case KindBool:
		var b bool
		err := json.Unmarshal(raw, &b)
		return b, err
	case KindString:
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case KindFloat:
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			return ParseValue(k, text)
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return ParseValue(k, n.String())
	case KindInt, KindLong:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return ParseValue(k, n.String())
	}
	return nil, fmt.Errorf("%w: kind %v", errInvalidValue, k)
}
