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

// Package entity turns storage rows into typed domain objects.
//
// A Decoder[T] allocates a fresh *T for every row and assigns the row's
// fields to it by name. Three decoders are provided:
//
//   - StructDecoder maps fields onto struct fields by tag (default "bun")
//     or by name, coercing scalars with mapstructure.
//   - Schema maps fields through explicitly registered setters.
//   - RecordDecoder keeps every field as an untyped types.Record.
//
// Fields missing from the row, or null in it, keep their zero value.
// Fields the entity does not know are ignored unless RejectUnknown is set.
package entity
