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

package entity

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/tomoncle/datamapper/types"
)

var timeType = reflect.TypeOf(time.Time{})

// StructDecoder maps row fields onto the fields of struct T. A row field
// matches a struct field by tag name (bun by default), by field name ignoring
// case, or by its snake_case spelling ("created_at" matches CreatedAt).
type StructDecoder[T any] struct {
	opts options
}

var _ Decoder[struct{}] = (*StructDecoder[struct{}])(nil)

func NewStructDecoder[T any](opts ...Option) *StructDecoder[T] {
	return &StructDecoder[T]{opts: buildOptions(opts)}
}

func (d *StructDecoder[T]) Decode(row *types.Row) (*T, error) {
	e := new(T)
	var err error
	row.Range(func(field string, v types.Value) bool {
		err = d.decodeField(e, field, v)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// decodeField decodes one field at a time so failures carry the field name.
func (d *StructDecoder[T]) decodeField(e *T, field string, v types.Value) error {
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           e,
		TagName:          d.opts.tagName,
		WeaklyTypedInput: true,
		Metadata:         &md,
		MatchName:        matchName,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			timeHook,
			mapstructure.StringToTimeDurationHookFunc(),
			numberHook,
		),
	})
	if err != nil {
		return fmt.Errorf("build decoder for %T: %w", e, err)
	}

	var input any
	if !v.IsNull() {
		input = v.Interface()
	}
	if err := dec.Decode(map[string]any{field: input}); err != nil {
		return &DecodeError{Field: field, Kind: v.Kind(), Err: err}
	}
	if len(md.Unused) > 0 && d.opts.unknown == RejectUnknown {
		return &DecodeError{Field: field, Kind: v.Kind(), Err: ErrUnknownField}
	}
	return nil
}

func matchName(mapKey, fieldName string) bool {
	return strings.EqualFold(mapKey, fieldName) ||
		strings.EqualFold(strings.ReplaceAll(mapKey, "_", ""), fieldName)
}

// timeHook converts strings and unix seconds into time.Time using the same
// rules as types.Value.Timestamp.
func timeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType || from == timeType {
		return data, nil
	}
	switch data.(type) {
	case string, int64:
		return types.MustValueOf(data).Timestamp()
	}
	return data, nil
}

// numberHook converts values bound for numeric fields through types.Value so
// that integers are never truncated or wrapped: floats must be integral and
// the result must fit the field's size and signedness.
func numberHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if data == nil {
		return data, nil
	}
	kind := to.Kind()
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
	default:
		return data, nil
	}
	if to == reflect.TypeOf(time.Duration(0)) {
		if _, ok := data.(time.Duration); ok {
			return data, nil
		}
	}
	v, err := types.ValueOf(data)
	if err != nil {
		return data, nil
	}

	switch kind {
	case reflect.Float32, reflect.Float64:
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		if kind == reflect.Float32 && !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
			return nil, fmt.Errorf("%v overflows %s", f, to)
		}
		return f, nil
	}

	n, err := v.Int64()
	if err != nil {
		return nil, err
	}
	bits := to.Bits()
	switch kind {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if n < 0 {
			return nil, fmt.Errorf("%d overflows %s", n, to)
		}
		if bits < 64 && uint64(n) > uint64(1)<<bits-1 {
			return nil, fmt.Errorf("%d overflows %s", n, to)
		}
		return uint64(n), nil
	}
	if bits < 64 {
		limit := int64(1) << (bits - 1)
		if n < -limit || n > limit-1 {
			return nil, fmt.Errorf("%d overflows %s", n, to)
		}
	}
	return n, nil
}
