/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Value is a tagged scalar as produced by a storage engine. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	t    time.Time
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Time returns a timestamp value.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// ValueOf converts a native or driver value into a Value. Byte slices become
// strings, every integer width becomes KindInt.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case *Value:
		if x == nil {
			return Null(), nil
		}
		return *x, nil
	case string:
		return String(x), nil
	case []byte:
		if x == nil {
			return Null(), nil
		}
		return String(string(x)), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return uintValue(uint64(x))
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return uintValue(x)
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case time.Time:
		return Time(x), nil
	case *string:
		if x == nil {
			return Null(), nil
		}
		return String(*x), nil
	case *int64:
		if x == nil {
			return Null(), nil
		}
		return Int(*x), nil
	case *float64:
		if x == nil {
			return Null(), nil
		}
		return Float(*x), nil
	case *bool:
		if x == nil {
			return Null(), nil
		}
		return Bool(*x), nil
	case *time.Time:
		if x == nil {
			return Null(), nil
		}
		return Time(*x), nil
	case fmt.Stringer:
		return String(x.String()), nil
	}
	return Null(), fmt.Errorf("unsupported scalar type %T", v)
}

// MustValueOf is like ValueOf but panics on unsupported types.
func MustValueOf(v any) Value {
	val, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	return val
}

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Null(), fmt.Errorf("unsigned value %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

// ParseValue infers a Value from its textual form: null, true/false, integers
// and floats are recognised, anything else is a string.
func ParseValue(s string) Value {
	switch strings.ToLower(s) {
	case "null", "nil":
		return Null()
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f)
	}
	return String(s)
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Interface returns the native Go value: nil, string, int64, float64, bool or time.Time.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	default:
		return nil
	}
}

// Str coerces the value into a string.
func (v Value) Str() (string, error) {
	switch v.kind {
	case KindString:
		return v.s, nil
	case KindInt:
		return strconv.FormatInt(v.i, 10), nil
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64), nil
	case KindBool:
		return strconv.FormatBool(v.b), nil
	case KindTime:
		return v.t.Format(time.RFC3339Nano), nil
	default:
		return "", nil
	}
}

// Int64 coerces the value into an integer. Strings are parsed, floats must be integral.
func (v Value) Int64() (int64, error) {
	switch v.kind {
	case KindInt:
		return v.i, nil
	case KindString:
		i, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to int: %w", v.s, err)
		}
		return i, nil
	case KindFloat:
		if v.f != math.Trunc(v.f) || v.f > math.MaxInt64 || v.f < math.MinInt64 {
			return 0, fmt.Errorf("cannot convert %v to int without loss", v.f)
		}
		return int64(v.f), nil
	case KindBool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case KindNull:
		return 0, nil
	}
	return 0, fmt.Errorf("cannot convert %s to int", v.kind)
}

// Float64 coerces the value into a float.
func (v Value) Float64() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInt:
		return float64(v.i), nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to float: %w", v.s, err)
		}
		return f, nil
	case KindNull:
		return 0, nil
	}
	return 0, fmt.Errorf("cannot convert %s to float", v.kind)
}

// Boolean coerces the value into a bool. Integers are true when non-zero.
func (v Value) Boolean() (bool, error) {
	switch v.kind {
	case KindBool:
		return v.b, nil
	case KindInt:
		return v.i != 0, nil
	case KindString:
		b, err := strconv.ParseBool(strings.TrimSpace(v.s))
		if err != nil {
			return false, fmt.Errorf("cannot convert %q to bool: %w", v.s, err)
		}
		return b, nil
	case KindNull:
		return false, nil
	}
	return false, fmt.Errorf("cannot convert %s to bool", v.kind)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp coerces the value into a time. Strings are parsed with common SQL layouts,
// integers are unix seconds.
func (v Value) Timestamp() (time.Time, error) {
	switch v.kind {
	case KindTime:
		return v.t, nil
	case KindString:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v.s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot convert %q to time", v.s)
	case KindInt:
		return time.Unix(v.i, 0).UTC(), nil
	case KindNull:
		return time.Time{}, nil
	}
	return time.Time{}, fmt.Errorf("cannot convert %s to time", v.kind)
}

// Equal reports whether two values hold the same scalar. Integers and floats
// compare numerically.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		if v.kind == KindInt && o.kind == KindFloat {
			return float64(v.i) == o.f
		}
		if v.kind == KindFloat && o.kind == KindInt {
			return v.f == float64(o.i)
		}
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindTime:
		return v.t.Equal(o.t)
	default:
		return true
	}
}

func (v Value) String() string {
	if v.kind == KindNull {
		return "null"
	}
	s, _ := v.Str()
	return s
}

// GoString makes %#v output readable in test failures.
func (v Value) GoString() string {
	if v.kind == KindString {
		return strconv.Quote(v.s)
	}
	return v.String()
}
