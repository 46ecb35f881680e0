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

// Package repository maps the rows of one storage collection onto typed
// entities.
//
// A Repository[T] holds a storage.Storage, a collection name, the name of the
// identifier column and an entity.Decoder[T]. It never builds queries and
// never modifies the criteria or data it is given: both are forwarded to the
// storage as they are, and every row that comes back is decoded into a new *T.
//
//	store := memory.New()
//	items := repository.NewRepository[Item](store, "items", entity.NewStructDecoder[Item]())
//	item, err := items.Find(ctx, 2)
//
// Find and FindBy report a missing row as (nil, nil). Storage failures are
// returned as *StorageError, decoding failures as *entity.DecodeError.
package repository
