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

// Package memory provides an in-process storage.Storage for tests, examples
// and the CLI's scratch mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tomoncle/datamapper/storage"
	"github.com/tomoncle/datamapper/types"
)

const defaultIDColumn = "id"

// IDGenerator returns the identifier for a row saved without one. seq is the
// collection's next sequence number, starting at 1.
type IDGenerator func(collection string, seq int64) types.Value

// SequenceGenerator yields auto-increment integer ids. It is the default.
func SequenceGenerator(_ string, seq int64) types.Value {
	return types.Int(seq)
}

// UUIDGenerator yields random UUID strings.
func UUIDGenerator(string, int64) types.Value {
	return types.String(uuid.NewString())
}

type collection struct {
	rows []*types.Row
	seq  int64
}

// Store keeps collections of rows in memory. Rows are copied on the way in
// and on the way out, so callers never share state with the store.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
	idColumn    string
	newID       IDGenerator

	readErr error
	saveErr error
}

var _ storage.Storage = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithIDColumn sets the identifier field. Defaults to "id".
func WithIDColumn(name string) Option {
	return func(s *Store) { s.idColumn = name }
}

// WithIDGenerator sets how identifiers are produced for rows saved without one.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Store) { s.newID = gen }
}

func New(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string]*collection),
		idColumn:    defaultIDColumn,
		newID:       SequenceGenerator,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithReadError makes FetchAll, FetchAllBy and Find fail with err.
func (s *Store) WithReadError(err error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
	return s
}

// WithSaveError makes Save fail with err.
func (s *Store) WithSaveError(err error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
	return s
}

func (s *Store) FetchAll(ctx context.Context, name string) ([]*types.Row, error) {
	return s.FetchAllBy(ctx, nil, name)
}

func (s *Store) FetchAllBy(ctx context.Context, criteria *types.Criteria, name string) ([]*types.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.readErr != nil {
		return nil, s.readErr
	}

	out := make([]*types.Row, 0)
	c, ok := s.collections[name]
	if !ok {
		return out, nil
	}
	for _, row := range c.rows {
		if row.Matches(criteria) {
			out = append(out, row.Clone())
		}
	}
	return out, nil
}

func (s *Store) Find(ctx context.Context, criteria *types.Criteria, name string) (*types.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.readErr != nil {
		return nil, s.readErr
	}

	c, ok := s.collections[name]
	if !ok {
		return nil, nil
	}
	for _, row := range c.rows {
		if row.Matches(criteria) {
			return row.Clone(), nil
		}
	}
	return nil, nil
}

// Save stores data in the collection, creating it on first use. When data
// carries the id of an existing row its fields are merged into that row.
// Otherwise a new row is appended, with a generated id if data has none.
func (s *Store) Save(ctx context.Context, data *types.Record, name string) (types.Value, error) {
	if err := ctx.Err(); err != nil {
		return types.Null(), err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return types.Null(), s.saveErr
	}
	return s.save(data, name), nil
}

func (s *Store) save(data *types.Record, name string) types.Value {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{}
		s.collections[name] = c
	}

	id, _ := data.Get(s.idColumn)
	if !id.IsNull() {
		for _, row := range c.rows {
			if existing, _ := row.Get(s.idColumn); existing.Equal(id) {
				data.Range(func(field string, v types.Value) bool {
					row.Set(field, v)
					return true
				})
				return existing
			}
		}
		if n, err := id.Int64(); err == nil && id.Kind() == types.KindInt && n > c.seq {
			c.seq = n
		}
		c.rows = append(c.rows, data.Clone())
		return id
	}

	c.seq++
	id = s.newID(name, c.seq)
	row := types.NewRecord().Set(s.idColumn, id)
	data.Range(func(field string, v types.Value) bool {
		if field != s.idColumn {
			row.Set(field, v)
		}
		return true
	})
	c.rows = append(c.rows, row)
	return id
}

// Seed appends rows to a collection as Save would, ignoring injected errors.
func (s *Store) Seed(name string, rows ...*types.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.save(row, name)
	}
}

// Len returns the number of rows in a collection.
func (s *Store) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return len(c.rows)
	}
	return 0
}

// Collections returns the names of the collections holding at least one row.
func (s *Store) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name, c := range s.collections {
		if len(c.rows) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Clear drops every collection.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = make(map[string]*collection)
}
