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

package instrument

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/datamapper/database"
	"github.com/tomoncle/datamapper/storage"
	"github.com/tomoncle/datamapper/types"
	"github.com/tomoncle/datamapper/utils"
)

const loggerName = "STORAGE"

// Store wraps a storage.Storage, recording metrics and logging every call.
// Results and errors of the wrapped storage are returned untouched.
type Store struct {
	next    storage.Storage
	metrics *Metrics
	logger  *utils.Logger
}

var _ storage.Storage = (*Store)(nil)

type Option func(*Store)

// WithLogger replaces the default "STORAGE" logger.
func WithLogger(logger *utils.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Wrap decorates next. A nil metrics only logs.
func Wrap(next storage.Storage, metrics *Metrics, opts ...Option) *Store {
	s := &Store{next: next, metrics: metrics, logger: utils.NewLogger(loggerName)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Unwrap returns the decorated storage.
func (s *Store) Unwrap() storage.Storage { return s.next }

// Close closes the decorated storage when it holds resources.
func (s *Store) Close() error { return storage.Close(s.next) }

func (s *Store) FetchAll(ctx context.Context, collection string) ([]*types.Row, error) {
	start := time.Now()
	rows, err := s.next.FetchAll(ctx, collection)
	s.observe(OpFetchAll, collection, start, len(rows), err, nil)
	return rows, err
}

func (s *Store) FetchAllBy(ctx context.Context, criteria *types.Criteria, collection string) ([]*types.Row, error) {
	start := time.Now()
	rows, err := s.next.FetchAllBy(ctx, criteria, collection)
	s.observe(OpFetchAllBy, collection, start, len(rows), err, logrus.Fields{"criteria": criteria.String()})
	return rows, err
}

func (s *Store) Find(ctx context.Context, criteria *types.Criteria, collection string) (*types.Row, error) {
	start := time.Now()
	row, err := s.next.Find(ctx, criteria, collection)
	n := 0
	if row != nil {
		n = 1
	}
	s.observe(OpFind, collection, start, n, err, logrus.Fields{"criteria": criteria.String()})
	return row, err
}

func (s *Store) Save(ctx context.Context, data *types.Record, collection string) (types.Value, error) {
	start := time.Now()
	id, err := s.next.Save(ctx, data, collection)
	s.observe(OpSave, collection, start, -1, err, logrus.Fields{"id": id.String()})
	return id, err
}

// observe records one call. rows < 0 marks a write.
func (s *Store) observe(op, collection string, start time.Time, rows int, err error, fields logrus.Fields) {
	elapsed := time.Since(start)

	entry := s.logger.WithFields(logrus.Fields{
		"op":         op,
		"collection": collection,
		"duration":   elapsed.Round(time.Microsecond).String(),
	})
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	if rows >= 0 {
		entry = entry.WithField("rows", rows)
	}

	status := StatusSuccess
	if err != nil {
		status = StatusError
		entry.WithError(err).WithField("error_type", errorType(err)).Warn("storage operation failed")
	} else {
		entry.Debug("storage operation")
	}

	if s.metrics == nil {
		return
	}
	s.metrics.RecordOperation(op, collection, status)
	s.metrics.RecordOperationDuration(op, collection, elapsed.Seconds())
	if err != nil {
		s.metrics.RecordOperationError(op, collection, errorType(err))
	} else if rows >= 0 {
		s.metrics.RecordRowsReturned(op, collection, rows)
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	if is, kind := database.IsSqlError(err); is {
		return kind.String()
	}
	return "other"
}
