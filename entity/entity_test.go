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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datamapper/types"
	"github.com/uptrace/bun"
)

type item struct {
	bun.BaseModel `bun:"table:items"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Name      string    `bun:"name"`
	Price     float64   `bun:"price"`
	Active    bool      `bun:"active"`
	CreatedAt time.Time `bun:",nullzero"`
	Note      *string   `bun:"note"`
}

func TestStructDecoder(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		row  *types.Row
		want item
	}{
		{
			name: "typed values",
			row:  types.MustRecord("id", 1, "name", "a", "price", 2.5, "active", true, "created_at", created),
			want: item{ID: 1, Name: "a", Price: 2.5, Active: true, CreatedAt: created},
		},
		{
			name: "driver strings are coerced",
			row:  types.MustRecord("id", []byte("7"), "price", "1.25", "active", "1", "created_at", "2025-03-01 10:00:00"),
			want: item{ID: 7, Price: 1.25, Active: true, CreatedAt: created},
		},
		{
			name: "null and missing keep zero values",
			row:  types.MustRecord("id", 2, "name", nil, "note", nil),
			want: item{ID: 2},
		},
		{
			name: "unknown fields are ignored",
			row:  types.MustRecord("id", 3, "color", "red"),
			want: item{ID: 3},
		},
	}
	dec := NewStructDecoder[item]()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dec.Decode(tt.row)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestStructDecoder_PointerField(t *testing.T) {
	got, err := NewStructDecoder[item]().Decode(types.MustRecord("note", "hello"))
	require.NoError(t, err)
	require.NotNil(t, got.Note)
	assert.Equal(t, "hello", *got.Note)
}

func TestStructDecoder_Errors(t *testing.T) {
	_, err := NewStructDecoder[item]().Decode(types.MustRecord("id", "abc"))
	require.Error(t, err)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "id", de.Field)
	assert.Equal(t, types.KindString, de.Kind)

	_, err = NewStructDecoder[item](WithUnknownFields(RejectUnknown)).Decode(types.MustRecord("id", 1, "color", "red"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownField))
	assert.True(t, IsDecodeError(err))
}

type sized struct {
	Small  int8    `bun:"small"`
	Count  uint32  `bun:"count"`
	Whole  int64   `bun:"whole"`
	Ratio  float32 `bun:"ratio"`
	Offset *int16  `bun:"offset"`
}

func TestStructDecoder_NumericRange(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value any
		kind  types.Kind
	}{
		{"int8 overflow", "small", 300, types.KindInt},
		{"int8 underflow", "small", -129, types.KindInt},
		{"negative into unsigned", "count", -1, types.KindInt},
		{"uint32 overflow", "count", int64(1) << 32, types.KindInt},
		{"fractional into int", "whole", 2.75, types.KindFloat},
		{"non-numeric string", "whole", "12abc", types.KindString},
		{"float32 overflow", "ratio", 1e39, types.KindFloat},
		{"pointer overflow", "offset", 40000, types.KindInt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStructDecoder[sized]().Decode(types.MustRecord(tt.field, tt.value))
			require.Error(t, err)
			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.field, de.Field)
			assert.Equal(t, tt.kind, de.Kind)
		})
	}

	got, err := NewStructDecoder[sized]().Decode(types.MustRecord(
		"small", -128, "count", 4294967295, "whole", 2.0, "ratio", 1.5, "offset", "-7"))
	require.NoError(t, err)
	require.NotNil(t, got.Offset)
	assert.Equal(t, sized{Small: -128, Count: 4294967295, Whole: 2, Ratio: 1.5, Offset: got.Offset}, *got)
	assert.Equal(t, int16(-7), *got.Offset)
}

func TestStructDecoder_TagName(t *testing.T) {
	type user struct {
		Login string `json:"user_login"`
		Age   int    `json:"age"`
	}
	got, err := NewStructDecoder[user](WithTagName("json")).Decode(types.MustRecord("user_login", "ann", "age", 41))
	require.NoError(t, err)
	assert.Equal(t, user{Login: "ann", Age: 41}, *got)
}

func TestStructDecoder_DoesNotModifyRow(t *testing.T) {
	row := types.MustRecord("id", 1, "name", "a", "extra", 3)
	before := row.Clone()
	_, err := NewStructDecoder[item]().Decode(row)
	require.NoError(t, err)
	assert.True(t, before.Equal(row))
}

func itemSchema(opts ...Option) *Schema[item] {
	return NewSchema[item](opts...).
		Field("id", Int(func(i *item, v int64) { i.ID = v })).
		Field("name", String(func(i *item, v string) { i.Name = v })).
		Field("price", Float(func(i *item, v float64) { i.Price = v })).
		Field("active", Bool(func(i *item, v bool) { i.Active = v })).
		Field("created_at", Time(func(i *item, v time.Time) { i.CreatedAt = v }))
}

func TestSchema(t *testing.T) {
	s := itemSchema()
	assert.Equal(t, []string{"id", "name", "price", "active", "created_at"}, s.Fields())

	got, err := s.Decode(types.MustRecord("id", "5", "name", "b", "price", 3, "active", false, "created_at", int64(0), "other", 1))
	require.NoError(t, err)
	assert.Equal(t, item{ID: 5, Name: "b", Price: 3, CreatedAt: time.Unix(0, 0).UTC()}, *got)

	got, err = s.Decode(types.MustRecord("id", nil))
	require.NoError(t, err)
	assert.Equal(t, item{}, *got)
}

func TestSchema_Errors(t *testing.T) {
	_, err := itemSchema().Decode(types.MustRecord("price", "cheap"))
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "price", de.Field)

	_, err = itemSchema(WithUnknownFields(RejectUnknown)).Decode(types.MustRecord("id", 1, "other", 2))
	require.ErrorIs(t, err, ErrUnknownField)
	assert.Contains(t, err.Error(), `"other"`)
}

func TestSchema_Raw(t *testing.T) {
	type box struct{ V types.Value }
	s := NewSchema[box]().Field("v", Raw(func(b *box, v types.Value) { b.V = v }))
	got, err := s.Decode(types.MustRecord("v", 1.5))
	require.NoError(t, err)
	assert.True(t, got.V.Equal(types.Float(1.5)))
}

func TestRecordDecoder(t *testing.T) {
	row := types.MustRecord("id", 1, "name", "a")
	got, err := RecordDecoder{}.Decode(row)
	require.NoError(t, err)
	assert.True(t, got.Equal(row))

	got.Set("name", types.String("changed"))
	v, _ := row.Get("name")
	assert.Equal(t, "a", v.Interface())
}

func TestDecoderFunc(t *testing.T) {
	dec := DecoderFunc[int](func(row *types.Row) (*int, error) {
		n := row.Len()
		return &n, nil
	})
	got, err := dec.Decode(types.MustRecord("a", 1, "b", 2))
	require.NoError(t, err)
	assert.Equal(t, 2, *got)
}
