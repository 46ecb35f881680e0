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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOrder(t *testing.T) {
	r := MustRecord("id", 1, "name", "a", "active", true)
	assert.Equal(t, []string{"id", "name", "active"}, r.Fields())

	r.Set("id", Int(2))
	assert.Equal(t, []string{"id", "name", "active"}, r.Fields())
	v, ok := r.Get("id")
	require.True(t, ok)
	assert.True(t, v.Equal(Int(2)))

	r.Delete("name")
	assert.Equal(t, 2, r.Len())
}

func TestRecordNil(t *testing.T) {
	var r *Record
	assert.Equal(t, 0, r.Len())
	assert.True(t, r.IsEmpty())
	_, ok := r.Get("id")
	assert.False(t, ok)
	assert.Empty(t, r.Map())
	assert.True(t, MustRecord("id", 1).Matches(r))
}

func TestRecordOfErrors(t *testing.T) {
	_, err := RecordOf("id")
	assert.Error(t, err)
	_, err = RecordOf(1, 2)
	assert.Error(t, err)
	_, err = RecordOf("x", []int{1})
	assert.Error(t, err)
}

func TestRecordMatches(t *testing.T) {
	row := MustRecord("id", 1, "name", "a", "deleted_at", nil)
	assert.True(t, row.Matches(MustRecord("name", "a")))
	assert.True(t, row.Matches(MustRecord("id", 1.0, "name", "a")))
	assert.False(t, row.Matches(MustRecord("name", "b")))
	assert.True(t, row.Matches(MustRecord("deleted_at", nil)))
	assert.True(t, row.Matches(MustRecord("missing", nil)))
	assert.False(t, row.Matches(MustRecord("missing", 1)))
}

func TestRecordCloneIsIndependent(t *testing.T) {
	r := MustRecord("id", 1)
	c := r.Clone()
	c.Set("name", String("x"))
	assert.Equal(t, 1, r.Len())
	assert.True(t, r.Equal(MustRecord("id", 1)))
	assert.False(t, r.Equal(c))
}

func TestRecordJSON(t *testing.T) {
	r := MustRecord("b", 2, "a", "x", "c", nil)
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"b":2,"a":"x","c":null}`, string(data))

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"b", "a", "c"}, back.Fields())
	assert.True(t, back.Equal(r))
}

func TestFromMapSortsFields(t *testing.T) {
	r, err := FromMap(map[string]any{"name": "a", "id": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, r.Fields())
	assert.Equal(t, `{id:1, name:"a"}`, r.String())
}
