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

// Package dynamo implements storage.Storage on Amazon DynamoDB. A collection
// is a table; rows are items. Criteria become scan filter expressions, except
// a lookup on the key attribute alone, which is served by GetItem.
package dynamo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/tomoncle/datamapper/storage"
	"github.com/tomoncle/datamapper/types"
)

const defaultKeyAttribute = "id"

type Store struct {
	client      API
	keyAttr     string
	tablePrefix string
	newKey      func() types.Value
}

var _ storage.Storage = (*Store)(nil)

type Option func(*Store)

// WithKeyAttribute sets the partition key attribute. Defaults to "id".
func WithKeyAttribute(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.keyAttr = name
		}
	}
}

// WithTablePrefix prepends prefix to every collection name.
func WithTablePrefix(prefix string) Option {
	return func(s *Store) { s.tablePrefix = prefix }
}

// WithKeyGenerator sets how keys are produced for items saved without one.
// Defaults to random UUID strings.
func WithKeyGenerator(gen func() types.Value) Option {
	return func(s *Store) { s.newKey = gen }
}

func New(client API, opts ...Option) *Store {
	s := &Store{
		client:  client,
		keyAttr: defaultKeyAttribute,
		newKey:  func() types.Value { return types.String(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig builds the client with NewClient and applies the table
// prefix and key attribute from cfg.
func NewFromConfig(ctx context.Context, cfg ClientConfig, opts ...Option) (*Store, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	base := []Option{WithTablePrefix(cfg.TablePrefix), WithKeyAttribute(cfg.KeyAttribute)}
	return New(client, append(base, opts...)...), nil
}

func (s *Store) table(collection string) *string {
	return aws.String(s.tablePrefix + collection)
}

func (s *Store) FetchAll(ctx context.Context, collection string) ([]*types.Row, error) {
	return s.FetchAllBy(ctx, nil, collection)
}

func (s *Store) FetchAllBy(ctx context.Context, criteria *types.Criteria, collection string) ([]*types.Row, error) {
	out := make([]*types.Row, 0)
	err := s.scan(ctx, criteria, collection, func(row *types.Row) bool {
		out = append(out, row)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Find(ctx context.Context, criteria *types.Criteria, collection string) (*types.Row, error) {
	if key, ok := s.keyLookup(criteria); ok {
		return s.getItem(ctx, key, collection)
	}

	var found *types.Row
	err := s.scan(ctx, criteria, collection, func(row *types.Row) bool {
		found = row
		return false
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Save writes data as a whole item with PutItem, replacing any item with the
// same key. A key is generated when data has none.
func (s *Store) Save(ctx context.Context, data *types.Record, collection string) (types.Value, error) {
	id, _ := data.Get(s.keyAttr)
	if id.IsNull() {
		id = s.newKey()
	}

	item, err := recordToItem(data)
	if err != nil {
		return types.Null(), err
	}
	keyAV, err := valueToAttribute(id)
	if err != nil {
		return types.Null(), err
	}
	item[s.keyAttr] = keyAV

	if _, err := s.client.PutItem(ctx, &sdk.PutItemInput{
		TableName: s.table(collection),
		Item:      item,
	}); err != nil {
		return types.Null(), fmt.Errorf("PutItem failed: %w", err)
	}
	return id, nil
}

func (s *Store) keyLookup(criteria *types.Criteria) (types.Value, bool) {
	if criteria.Len() != 1 {
		return types.Null(), false
	}
	v, ok := criteria.Get(s.keyAttr)
	if !ok || v.IsNull() {
		return types.Null(), false
	}
	return v, true
}

func (s *Store) getItem(ctx context.Context, key types.Value, collection string) (*types.Row, error) {
	keyAV, err := valueToAttribute(key)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetItem(ctx, &sdk.GetItemInput{
		TableName: s.table(collection),
		Key:       map[string]ddbtypes.AttributeValue{s.keyAttr: keyAV},
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return s.itemToRow(out.Item)
}

// scan walks every page of a filtered Scan, calling fn for each matching row
// until fn returns false. Rows are also matched locally so numeric criteria
// compare the way types.Value.Equal does.
func (s *Store) scan(ctx context.Context, criteria *types.Criteria, collection string, fn func(*types.Row) bool) error {
	input := &sdk.ScanInput{TableName: s.table(collection)}
	if criteria.Len() > 0 {
		expr, names, values, err := buildFilter(criteria)
		if err != nil {
			return err
		}
		input.FilterExpression = aws.String(expr)
		input.ExpressionAttributeNames = names
		input.ExpressionAttributeValues = values
	}

	for {
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return fmt.Errorf("Scan error: %w", err)
		}
		for _, item := range out.Items {
			row, err := s.itemToRow(item)
			if err != nil {
				return err
			}
			if !row.Matches(criteria) {
				continue
			}
			if !fn(row) {
				return nil
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// buildFilter transforms criteria into a filter expression such as
// "#n0 = :v0 AND (attribute_not_exists(#n1) OR #n1 = :v1)".
func buildFilter(criteria *types.Criteria) (string, map[string]string, map[string]ddbtypes.AttributeValue, error) {
	clauses := make([]string, 0, criteria.Len())
	names := make(map[string]string, criteria.Len())
	values := make(map[string]ddbtypes.AttributeValue, criteria.Len())

	i := 0
	var err error
	criteria.Range(func(field string, v types.Value) bool {
		name, value := fmt.Sprintf("#n%d", i), fmt.Sprintf(":v%d", i)
		names[name] = field

		var av ddbtypes.AttributeValue
		if av, err = valueToAttribute(v); err != nil {
			err = fmt.Errorf("filter field %q: %w", field, err)
			return false
		}
		values[value] = av

		if v.IsNull() {
			clauses = append(clauses, fmt.Sprintf("(attribute_not_exists(%s) OR %s = %s)", name, name, value))
		} else {
			clauses = append(clauses, fmt.Sprintf("%s = %s", name, value))
		}
		i++
		return true
	})
	if err != nil {
		return "", nil, nil, err
	}
	return strings.Join(clauses, " AND "), names, values, nil
}

func valueToAttribute(v types.Value) (ddbtypes.AttributeValue, error) {
	av, err := attributevalue.Marshal(v.Interface())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s value: %w", v.Kind(), err)
	}
	return av, nil
}

func recordToItem(r *types.Record) (map[string]ddbtypes.AttributeValue, error) {
	item := make(map[string]ddbtypes.AttributeValue, r.Len())
	var err error
	r.Range(func(field string, v types.Value) bool {
		var av ddbtypes.AttributeValue
		if av, err = valueToAttribute(v); err != nil {
			return false
		}
		item[field] = av
		return true
	})
	return item, err
}

// itemToRow converts an item into a row with the key attribute first and the
// remaining attributes sorted by name.
func (s *Store) itemToRow(item map[string]ddbtypes.AttributeValue) (*types.Row, error) {
	fields := make([]string, 0, len(item))
	for field := range item {
		if field != s.keyAttr {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	if _, ok := item[s.keyAttr]; ok {
		fields = append([]string{s.keyAttr}, fields...)
	}

	row := types.NewRecord()
	for _, field := range fields {
		v, err := attributeToValue(item[field])
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", field, err)
		}
		row.Set(field, v)
	}
	return row, nil
}

// attributeToValue maps scalar attributes onto values. Lists, maps and sets
// are unmarshaled with attributevalue and kept as their JSON text.
func attributeToValue(av ddbtypes.AttributeValue) (types.Value, error) {
	switch tv := av.(type) {
	case *ddbtypes.AttributeValueMemberS:
		return types.String(tv.Value), nil
	case *ddbtypes.AttributeValueMemberN:
		if i, err := strconv.ParseInt(tv.Value, 10, 64); err == nil {
			return types.Int(i), nil
		}
		f, err := strconv.ParseFloat(tv.Value, 64)
		if err != nil {
			return types.Null(), fmt.Errorf("invalid number %q: %w", tv.Value, err)
		}
		return types.Float(f), nil
	case *ddbtypes.AttributeValueMemberBOOL:
		return types.Bool(tv.Value), nil
	case *ddbtypes.AttributeValueMemberNULL:
		return types.Null(), nil
	case *ddbtypes.AttributeValueMemberB:
		return types.String(string(tv.Value)), nil
	}

	var native any
	if err := attributevalue.Unmarshal(av, &native); err != nil {
		return types.Null(), fmt.Errorf("failed to unmarshal attribute: %w", err)
	}
	b, err := json.Marshal(native)
	if err != nil {
		return types.Null(), err
	}
	return types.String(string(b)), nil
}
