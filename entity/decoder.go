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
	"errors"
	"fmt"

	"github.com/tomoncle/datamapper/types"
)

// ErrUnknownField is wrapped by DecodeError when a row carries a field the
// entity does not declare and the decoder rejects unknown fields.
var ErrUnknownField = errors.New("unknown field")

// Decoder builds a new entity from a row. Implementations must not retain or
// modify the row.
type Decoder[T any] interface {
	Decode(row *types.Row) (*T, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc[T any] func(row *types.Row) (*T, error)

func (f DecoderFunc[T]) Decode(row *types.Row) (*T, error) { return f(row) }

// UnknownFieldPolicy decides what happens to row fields the entity does not declare.
type UnknownFieldPolicy int

const (
	IgnoreUnknown UnknownFieldPolicy = iota
	RejectUnknown
)

func (p UnknownFieldPolicy) String() string {
	if p == RejectUnknown {
		return "reject"
	}
	return "ignore"
}

// DecodeError reports a row field that could not be assigned to the entity.
type DecodeError struct {
	Field string
	Kind  types.Kind
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode field %q (%s): %v", e.Field, e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is, or wraps, a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

type options struct {
	unknown UnknownFieldPolicy
	tagName string
}

func defaultOptions() options {
	return options{unknown: IgnoreUnknown, tagName: "bun"}
}

// Option configures a decoder.
type Option func(*options)

// WithUnknownFields sets the policy applied to undeclared row fields.
func WithUnknownFields(p UnknownFieldPolicy) Option {
	return func(o *options) { o.unknown = p }
}

// WithTagName sets the struct tag StructDecoder reads field names from.
func WithTagName(tag string) Option {
	return func(o *options) { o.tagName = tag }
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
