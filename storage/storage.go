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

// Package storage defines the contract between a repository and the engine
// that actually holds the data. Backends live in subpackages: memory, sqlstore,
// dynamo, plus the instrument decorator.
package storage

import (
	"context"

	"github.com/tomoncle/datamapper/types"
)

// Storage is the storage collaborator of a repository. Implementations must
// not retain or modify the criteria and data records they are given.
type Storage interface {
	// FetchAll returns every row of the collection in the engine's natural order.
	FetchAll(ctx context.Context, collection string) ([]*types.Row, error)

	// FetchAllBy returns the rows whose fields equal every criteria field.
	FetchAllBy(ctx context.Context, criteria *types.Criteria, collection string) ([]*types.Row, error)

	// Find returns the first row matching criteria, or nil when none does.
	Find(ctx context.Context, criteria *types.Criteria, collection string) (*types.Row, error)

	// Save persists data and returns the identifier of the stored row.
	Save(ctx context.Context, data *types.Record, collection string) (types.Value, error)
}

// Closer is implemented by backends holding external resources.
type Closer interface {
	Close() error
}

// Close closes s when it implements Closer.
func Close(s Storage) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}
