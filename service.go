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

package datamapper

import (
	"context"
	"sync"

	"github.com/tomoncle/datamapper/entity"
	"github.com/tomoncle/datamapper/repository"
	"github.com/tomoncle/datamapper/types"
)

type Service[T any] interface {
	// Get returns the entity whose identifier column equals id, or nil.
	Get(ctx context.Context, id any) (*T, error)

	// All returns every entity of the collection.
	All(ctx context.Context) ([]*T, error)

	// List returns the entities that match criteria.
	List(ctx context.Context, criteria *types.Criteria) ([]*T, error)

	// First returns the first entity that matches criteria, or nil.
	First(ctx context.Context, criteria *types.Criteria) (*T, error)

	// Save persists raw field data and returns the stored identifier.
	Save(ctx context.Context, data *types.Record) (types.Value, error)

	// Repository returns the underlying repository.
	Repository() repository.Repository[T]
}

type baseServiceImpl[T any] struct {
	collection string
	decoder    entity.Decoder[T]
	opts       []repository.Option

	repo repository.Repository[T]
	once sync.Once
}

// NewService returns a default Service implementation over collection. The
// repository is built on first use against DefaultStorage, so Open may run
// after the service is declared. A nil decoder maps rows onto T by field name.
func NewService[T any](collection string, decoder entity.Decoder[T], opts ...repository.Option) Service[T] {
	return &baseServiceImpl[T]{collection: collection, decoder: decoder, opts: opts}
}

func (s *baseServiceImpl[T]) baseRepo() repository.Repository[T] {
	s.once.Do(func() {
		s.repo = repository.NewRepository[T](DefaultStorage(), s.collection, s.decoder, s.opts...)
	})
	return s.repo
}

func (s *baseServiceImpl[T]) Repository() repository.Repository[T] {
	return s.baseRepo()
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	return s.baseRepo().Find(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	return s.baseRepo().FetchAll(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, criteria *types.Criteria) ([]*T, error) {
	return s.baseRepo().FetchAllBy(ctx, criteria)
}

func (s *baseServiceImpl[T]) First(ctx context.Context, criteria *types.Criteria) (*T, error) {
	return s.baseRepo().FindBy(ctx, criteria)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, data *types.Record) (types.Value, error) {
	return s.baseRepo().Save(ctx, data)
}
