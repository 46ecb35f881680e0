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

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// Kind tags the scalar held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindTime
)

var _ BaseEnum = Kind(0)

var kindNames = map[Kind][2]string{
	KindNull:   {"null", "absent or SQL NULL value"},
	KindString: {"string", "character data"},
	KindInt:    {"int", "64-bit signed integer"},
	KindFloat:  {"float", "64-bit floating point number"},
	KindBool:   {"bool", "boolean"},
	KindTime:   {"time", "timestamp"},
}

func (k Kind) IsValid() bool {
	_, ok := kindNames[k]
	return ok
}

func (k Kind) Number() int {
	if !k.IsValid() {
		return IllegalValue
	}
	return int(k)
}

func (k Kind) Name() string {
	if n, ok := kindNames[k]; ok {
		return n[0]
	}
	return IllegalName
}

func (k Kind) Desc() string {
	if n, ok := kindNames[k]; ok {
		return n[1]
	}
	return IllegalDesc
}

func (k Kind) String() string { return k.Name() }
