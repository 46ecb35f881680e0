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
	"time"

	"github.com/tomoncle/datamapper/types"
)

// Setter assigns one non-null row value to an entity.
type Setter[T any] func(e *T, v types.Value) error

// Schema decodes rows through explicitly registered field setters. It is the
// reflection-free alternative to StructDecoder.
//
//	items := entity.NewSchema[Item]().
//		Field("id", entity.Int(func(i *Item, v int64) { i.ID = v })).
//		Field("name", entity.String(func(i *Item, v string) { i.Name = v }))
type Schema[T any] struct {
	setters map[string]Setter[T]
	order   []string
	opts    options
}

var _ Decoder[struct{}] = (*Schema[struct{}])(nil)

func NewSchema[T any](opts ...Option) *Schema[T] {
	return &Schema[T]{
		setters: make(map[string]Setter[T]),
		opts:    buildOptions(opts),
	}
}

// Field registers the setter for a row field. Registering a name twice
// replaces the earlier setter.
func (s *Schema[T]) Field(name string, set Setter[T]) *Schema[T] {
	if _, ok := s.setters[name]; !ok {
		s.order = append(s.order, name)
	}
	s.setters[name] = set
	return s
}

// Fields returns the registered field names in registration order.
func (s *Schema[T]) Fields() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Schema[T]) Decode(row *types.Row) (*T, error) {
	e := new(T)
	var err error
	row.Range(func(field string, v types.Value) bool {
		set, ok := s.setters[field]
		if !ok {
			if s.opts.unknown == RejectUnknown {
				err = &DecodeError{Field: field, Kind: v.Kind(), Err: ErrUnknownField}
				return false
			}
			return true
		}
		if v.IsNull() {
			return true
		}
		if serr := set(e, v); serr != nil {
			err = &DecodeError{Field: field, Kind: v.Kind(), Err: serr}
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// String coerces the value with types.Value.Str.
func String[T any](set func(*T, string)) Setter[T] {
	return func(e *T, v types.Value) error {
		s, err := v.Str()
		if err != nil {
			return err
		}
		set(e, s)
		return nil
	}
}

// Int coerces the value with types.Value.Int64.
func Int[T any](set func(*T, int64)) Setter[T] {
	return func(e *T, v types.Value) error {
		i, err := v.Int64()
		if err != nil {
			return err
		}
		set(e, i)
		return nil
	}
}

// Float coerces the value with types.Value.Float64.
func Float[T any](set func(*T, float64)) Setter[T] {
	return func(e *T, v types.Value) error {
		f, err := v.Float64()
		if err != nil {
			return err
		}
		set(e, f)
		return nil
	}
}

// Bool coerces the value with types.Value.Boolean.
func Bool[T any](set func(*T, bool)) Setter[T] {
	return func(e *T, v types.Value) error {
		b, err := v.Boolean()
		if err != nil {
			return err
		}
		set(e, b)
		return nil
	}
}

// Time coerces the value with types.Value.Timestamp.
func Time[T any](set func(*T, time.Time)) Setter[T] {
	return func(e *T, v types.Value) error {
		t, err := v.Timestamp()
		if err != nil {
			return err
		}
		set(e, t)
		return nil
	}
}

// Raw hands the value over without coercion.
func Raw[T any](set func(*T, types.Value)) Setter[T] {
	return func(e *T, v types.Value) error {
		set(e, v)
		return nil
	}
}
