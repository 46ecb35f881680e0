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
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is an ordered mapping from field name to Value. A nil *Record behaves
// as an empty record for every read method.
type Record struct {
	fields *orderedmap.OrderedMap[string, Value]
}

// Row is a record produced by a storage engine.
type Row = Record

// Criteria is a record of field equality filters, ANDed by the storage engine.
type Criteria = Record

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{fields: orderedmap.New[string, Value]()}
}

// RecordOf builds a record from alternating field/value arguments, converting
// each value with ValueOf.
func RecordOf(kv ...any) (*Record, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("odd number of arguments: %d", len(kv))
	}
	r := NewRecord()
	for i := 0; i < len(kv); i += 2 {
		field, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("field name at position %d must be a string, got %T", i, kv[i])
		}
		v, err := ValueOf(kv[i+1])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		r.Set(field, v)
	}
	return r, nil
}

// MustRecord is like RecordOf but panics on error. Intended for literals.
func MustRecord(kv ...any) *Record {
	r, err := RecordOf(kv...)
	if err != nil {
		panic(err)
	}
	return r
}

// FromMap builds a record from a plain map. Fields are sorted by name since
// map iteration order is random.
func FromMap(m map[string]any) (*Record, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r := NewRecord()
	for _, k := range keys {
		v, err := ValueOf(m[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		r.Set(k, v)
	}
	return r, nil
}

// Set assigns a field, keeping its original position when it already exists.
func (r *Record) Set(field string, v Value) *Record {
	if r.fields == nil {
		r.fields = orderedmap.New[string, Value]()
	}
	r.fields.Set(field, v)
	return r
}

func (r *Record) Get(field string) (Value, bool) {
	if r == nil || r.fields == nil {
		return Null(), false
	}
	return r.fields.Get(field)
}

func (r *Record) Has(field string) bool {
	_, ok := r.Get(field)
	return ok
}

func (r *Record) Delete(field string) {
	if r == nil || r.fields == nil {
		return
	}
	r.fields.Delete(field)
}

func (r *Record) Len() int {
	if r == nil || r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

func (r *Record) IsEmpty() bool { return r.Len() == 0 }

// Range calls fn for every field in order until fn returns false.
func (r *Record) Range(fn func(field string, v Value) bool) {
	if r == nil || r.fields == nil {
		return
	}
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

func (r *Record) Fields() []string {
	out := make([]string, 0, r.Len())
	r.Range(func(field string, _ Value) bool {
		out = append(out, field)
		return true
	})
	return out
}

// Clone returns an independent copy with the same field order.
func (r *Record) Clone() *Record {
	c := NewRecord()
	r.Range(func(field string, v Value) bool {
		c.Set(field, v)
		return true
	})
	return c
}

// Map returns the record as native Go values.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, r.Len())
	r.Range(func(field string, v Value) bool {
		m[field] = v.Interface()
		return true
	})
	return m
}

// Matches reports whether every criteria field is present in r with an equal value.
func (r *Record) Matches(criteria *Criteria) bool {
	ok := true
	criteria.Range(func(field string, want Value) bool {
		got, present := r.Get(field)
		if !present {
			ok = want.IsNull()
			return ok
		}
		ok = got.Equal(want)
		return ok
	})
	return ok
}

// Equal reports whether both records hold the same fields in the same order.
func (r *Record) Equal(o *Record) bool {
	if r.Len() != o.Len() {
		return false
	}
	rf, of := r.Fields(), o.Fields()
	for i, f := range rf {
		if of[i] != f {
			return false
		}
		a, _ := r.Get(f)
		b, _ := o.Get(f)
		if !a.Equal(b) {
			return false
		}
	}
	return true
}

func (r *Record) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	i := 0
	r.Range(func(field string, v Value) bool {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(field)
		sb.WriteByte(':')
		sb.WriteString(v.GoString())
		i++
		return true
	})
	sb.WriteByte('}')
	return sb.String()
}

// MarshalJSON encodes the record as a JSON object in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil || r.fields == nil {
		return []byte("{}"), nil
	}
	return r.fields.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object of scalars, keeping the document's key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	fields := orderedmap.New[string, Value]()
	if err := fields.UnmarshalJSON(data); err != nil {
		return err
	}
	r.fields = fields
	return nil
}
