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

	"github.com/tomoncle/datamapper/types"
)

// ReadRepository defines the lookups of a repository.
type ReadRepository[T any] interface {
	// FetchAll returns every entity of the collection in storage order.
	FetchAll(ctx context.Context) ([]*T, error)

	// FetchAllBy returns the entities whose fields equal every criteria field.
	FetchAllBy(ctx context.Context, criteria *types.Criteria) ([]*T, error)

	// Find returns the entity whose identifier column equals identifier, or nil.
	Find(ctx context.Context, identifier any) (*T, error)

	// FindBy returns the first entity matching criteria, or nil.
	FindBy(ctx context.Context, criteria *types.Criteria) (*T, error)
}

// WriteRepository defines persistence of raw field data.
type WriteRepository interface {
	// Save persists data and returns the identifier reported by the storage.
	Save(ctx context.Context, data *types.Record) (types.Value, error)
}

// Repository combines reads and writes over one collection.
type Repository[T any] interface {
	ReadRepository[T]
	WriteRepository
	Collection() string
	IdentifierColumn() string
}
