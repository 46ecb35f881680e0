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

package repository

import (
	"context"
	"fmt"

	"github.com/tomoncle/datamapper/entity"
	"github.com/tomoncle/datamapper/storage"
	"github.com/tomoncle/datamapper/types"
)

const defaultIdentifierColumn = "id"

type baseRepositoryImpl[T any] struct {
	store      storage.Storage
	collection string
	idColumn   string
	decoder    entity.Decoder[T]
}

// Option configures a repository.
type Option func(*config)

type config struct {
	idColumn string
}

// WithIdentifierColumn sets the column Find matches identifiers against.
// Defaults to "id".
func WithIdentifierColumn(name string) Option {
	return func(c *config) { c.idColumn = name }
}

// NewRepository returns a repository over collection. A nil decoder falls
// back to entity.NewStructDecoder[T]().
func NewRepository[T any](store storage.Storage, collection string, decoder entity.Decoder[T], opts ...Option) Repository[T] {
	cfg := config{idColumn: defaultIdentifierColumn}
	for _, opt := range opts {
		opt(&cfg)
	}
	if decoder == nil {
		decoder = entity.NewStructDecoder[T]()
	}
	return &baseRepositoryImpl[T]{
		store:      store,
		collection: collection,
		idColumn:   cfg.idColumn,
		decoder:    decoder,
	}
}

// NewRecordRepository returns a repository whose entities are the rows
// themselves, with every field kept.
func NewRecordRepository(store storage.Storage, collection string, opts ...Option) Repository[types.Record] {
	return NewRepository[types.Record](store, collection, entity.RecordDecoder{}, opts...)
}

func (r *baseRepositoryImpl[T]) Collection() string { return r.collection }

func (r *baseRepositoryImpl[T]) IdentifierColumn() string { return r.idColumn }

func (r *baseRepositoryImpl[T]) FetchAll(ctx context.Context) ([]*T, error) {
	rows, err := r.store.FetchAll(ctx, r.collection)
	if err != nil {
		return nil, r.storageError(OpFetchAll, err)
	}
	return r.mapRows(rows)
}

func (r *baseRepositoryImpl[T]) FetchAllBy(ctx context.Context, criteria *types.Criteria) ([]*T, error) {
	rows, err := r.store.FetchAllBy(ctx, criteria, r.collection)
	if err != nil {
		return nil, r.storageError(OpFetchAllBy, err)
	}
	return r.mapRows(rows)
}

func (r *baseRepositoryImpl[T]) Find(ctx context.Context, identifier any) (*T, error) {
	id, err := types.ValueOf(identifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
	}
	if id.IsNull() {
		return nil, fmt.Errorf("%w: null", ErrInvalidIdentifier)
	}
	return r.findBy(ctx, types.NewRecord().Set(r.idColumn, id))
}

func (r *baseRepositoryImpl[T]) FindBy(ctx context.Context, criteria *types.Criteria) (*T, error) {
	return r.findBy(ctx, criteria)
}

func (r *baseRepositoryImpl[T]) findBy(ctx context.Context, criteria *types.Criteria) (*T, error) {
	row, err := r.store.Find(ctx, criteria, r.collection)
	if err != nil {
		return nil, r.storageError(OpFind, err)
	}
	if row.IsEmpty() {
		return nil, nil
	}
	return r.decoder.Decode(row)
}

func (r *baseRepositoryImpl[T]) Save(ctx context.Context, data *types.Record) (types.Value, error) {
	id, err := r.store.Save(ctx, data, r.collection)
	if err != nil {
		return types.Null(), r.storageError(OpSave, err)
	}
	return id, nil
}

func (r *baseRepositoryImpl[T]) mapRows(rows []*types.Row) ([]*T, error) {
	entities := make([]*T, 0, len(rows))
	for _, row := range rows {
		e, err := r.decoder.Decode(row)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) storageError(op string, err error) error {
	return &StorageError{Op: op, Collection: r.collection, Err: err}
}
