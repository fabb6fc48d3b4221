package models

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/bytedance/sonic"
)

// ActorID identifies a known actor. It is either a string or an integer and
// keeps that shape on the wire. The zero value means no actor.
type ActorID struct {
	str   string
	num   int64
	isNum bool
}

// StringID returns a string actor id.
func StringID(s string) ActorID {
	return ActorID{str: s}
}

// IntID returns a numeric actor id.
func IntID(n int64) ActorID {
	return ActorID{num: n, isNum: true}
}

// ParseActorID converts a property value into an actor id. Empty strings,
// non-integral numbers and other types are rejected.
func ParseActorID(v any) (ActorID, bool) {
	switch t := v.(type) {
	case ActorID:
		return t, !t.IsZero()
	case string:
		if t == "" {
			return ActorID{}, false
		}
		return StringID(t), true
	case int:
		return IntID(int64(t)), true
	case int32:
		return IntID(int64(t)), true
	case int64:
		return IntID(t), true
	case uint32:
		return IntID(int64(t)), true
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return ActorID{}, false
		}
		return IntID(int64(t)), true
	case interface{ Int64() (int64, error) }:
		n, err := t.Int64()
		if err != nil {
			return ActorID{}, false
		}
		return IntID(n), true
	}
	return ActorID{}, false
}

// IsZero reports whether no actor is set.
func (a ActorID) IsZero() bool {
	return !a.isNum && a.str == ""
}

// IsNumber reports whether the id is numeric.
func (a ActorID) IsNumber() bool {
	return a.isNum
}

// String returns the persisted form of the id.
func (a ActorID) String() string {
	if a.isNum {
		return strconv.FormatInt(a.num, 10)
	}
	return a.str
}

func (a ActorID) MarshalJSON() ([]byte, error) {
	if a.isNum {
		return []byte(strconv.FormatInt(a.num, 10)), nil
	}
	if a.str == "" {
		return []byte("null"), nil
	}
	return sonic.ConfigStd.Marshal(a.str)
}

var errActorIDShape = errors.New("actor id must be a string or an integer")

func (a *ActorID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ActorID{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := sonic.ConfigStd.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = StringID(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(string(data), 64)
		if ferr != nil || f != math.Trunc(f) {
			return fmt.Errorf("%w: %s", errActorIDShape, data)
		}
		n = int64(f)
	}
	*a = IntID(n)
	return nil
}
