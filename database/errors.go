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

package database

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoIndexErr
	NoColumnErr
	ExistIndexErr
	ExistColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
)

var sqlErrorNames = [...]string{
	UnknownErr:                  "unknown",
	NoRowsErr:                   "no_rows",
	NoIndexErr:                  "no_index",
	NoColumnErr:                 "no_column",
	ExistIndexErr:               "index_exists",
	ExistColumnErr:              "column_exists",
	NoTableErr:                  "no_table",
	ExistTableErr:               "table_exists",
	DuplicateKeyErr:             "duplicate_key",
	NotNullViolationErr:         "not_null_violation",
	ForeignKeyViolationErr:      "foreign_key_violation",
	CheckConstraintViolationErr: "check_violation",
	DataTruncatedErr:            "data_truncated",
	InvalidTypeCastErr:          "invalid_type_cast",
}

func (e SQLError) String() string {
	if int(e) < 0 || int(e) >= len(sqlErrorNames) {
		return sqlErrorNames[UnknownErr]
	}
	return sqlErrorNames[e]
}

var mysqlErrorCodes = map[uint16]SQLError{
	1091: NoIndexErr,
	1054: NoColumnErr,
	1061: ExistIndexErr,
	1060: ExistColumnErr,
	1146: NoTableErr,
	1050: ExistTableErr,
	1062: DuplicateKeyErr,
	1048: NotNullViolationErr,
	1216: ForeignKeyViolationErr,
	1217: ForeignKeyViolationErr,
	1451: ForeignKeyViolationErr,
	1452: ForeignKeyViolationErr,
	3819: CheckConstraintViolationErr,
	1265: DataTruncatedErr,
	1406: DataTruncatedErr,
}

type messageRule struct {
	kind SQLError
	all  []string
	any  []string
}

func (r messageRule) matches(s string) bool {
	if len(r.all) > 0 {
		for _, part := range r.all {
			if !strings.Contains(s, part) {
				return false
			}
		}
		return true
	}
	for _, part := range r.any {
		if strings.Contains(s, part) {
			return true
		}
	}
	return false
}

// messageRules match Postgres (SQLSTATE) and SQLite error texts, first match wins.
var messageRules = []messageRule{
	{kind: NoColumnErr, any: []string{"sqlstate 42703", "undefined column", "no such column", "has no column named"}},
	{kind: NoIndexErr, any: []string{"sqlstate 42704", "no such index"}},
	{kind: NoIndexErr, all: []string{"does not exist", "index"}},
	{kind: NoTableErr, any: []string{"sqlstate 42p01", "undefined table", "no such table"}},
	{kind: ExistIndexErr, all: []string{"already exists", "index"}},
	{kind: ExistTableErr, all: []string{"already exists", "table"}},
	{kind: ExistTableErr, all: []string{"already exists", "relation"}},
	{kind: DuplicateKeyErr, any: []string{"duplicate key value", "unique constraint failed", "sqlstate 23505"}},
	{kind: NotNullViolationErr, any: []string{"not-null constraint", "sqlstate 23502", "not null constraint failed"}},
	{kind: ForeignKeyViolationErr, any: []string{"foreign key violation", "foreign key constraint failed", "sqlstate 23503"}},
	{kind: CheckConstraintViolationErr, any: []string{"check constraint", "sqlstate 23514"}},
	{kind: DataTruncatedErr, any: []string{"string data right truncation", "sqlstate 22001", "data truncated"}},
	{kind: InvalidTypeCastErr, any: []string{"datatype mismatch", "sqlstate 42804"}},
}

// IsSqlError classifies a driver error. The boolean is false when err is not
// recognisable as a SQL error.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if kind, ok := mysqlErrorCodes[mysqlErr.Number]; ok {
			return true, kind
		}
		return true, UnknownErr
	}
	s := strings.ToLower(err.Error())
	for _, rule := range messageRules {
		if rule.matches(s) {
			return true, rule.kind
		}
	}
	return false, UnknownErr
}
