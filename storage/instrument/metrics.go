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

// Package instrument decorates a storage.Storage with Prometheus metrics and
// structured logging.
package instrument

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Operation label values.
const (
	OpFetchAll   = "fetch_all"
	OpFetchAllBy = "fetch_all_by"
	OpFind       = "find"
	OpSave       = "save"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const (
	bucketStart1ms = 0.001
	bucketFactor2  = 2
	bucketCount15  = 15
)

// Metrics contains the Prometheus collectors for storage operations.
type Metrics struct {
	operationsTotal      *prometheus.CounterVec
	operationDuration    *prometheus.HistogramVec
	operationErrorsTotal *prometheus.CounterVec
	rowsReturned         *prometheus.HistogramVec

	collectors []prometheus.Collector
}

// NewMetrics creates the storage metrics and registers them with registerer.
// A nil registerer leaves them unregistered.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{}
	m.initMetrics()
	if registerer != nil {
		if err := registerer.Register(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datamapper_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "collection", "status"},
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datamapper_storage_operation_duration_seconds",
			Help:    "Time taken for storage operations",
			Buckets: prometheus.ExponentialBuckets(bucketStart1ms, bucketFactor2, bucketCount15), // 1ms to ~16s
		},
		[]string{"operation", "collection"},
	)

	m.operationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datamapper_storage_operation_errors_total",
			Help: "Total number of failed storage operations",
		},
		[]string{"operation", "collection", "error_type"},
	)

	m.rowsReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datamapper_storage_rows_returned",
			Help:    "Number of rows returned by read operations",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"operation", "collection"},
	)

	m.collectors = []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.operationErrorsTotal,
		m.rowsReturned,
	}
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordOperation records a storage operation with its outcome.
func (m *Metrics) RecordOperation(operation, collection, status string) {
	m.operationsTotal.WithLabelValues(operation, collection, status).Inc()
}

// RecordOperationDuration records the duration of a storage operation in seconds.
func (m *Metrics) RecordOperationDuration(operation, collection string, seconds float64) {
	m.operationDuration.WithLabelValues(operation, collection).Observe(seconds)
}

// RecordOperationError records a failed storage operation.
func (m *Metrics) RecordOperationError(operation, collection, errorType string) {
	m.operationErrorsTotal.WithLabelValues(operation, collection, errorType).Inc()
}

// RecordRowsReturned records the size of a read result.
func (m *Metrics) RecordRowsReturned(operation, collection string, n int) {
	m.rowsReturned.WithLabelValues(operation, collection).Observe(float64(n))
}
