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
	"strings"

	"github.com/uptrace/bun"
)

const (
	DefaultQueryOffset = 0
	DefaultQueryLimit  = 100
)

// QueryFilter describes a WHERE clause schema and its argument values.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// Eq matches rows whose column equals value.
func Eq(column string, value interface{}) *QueryFilter {
	return NewQueryFilter("? = ?", bun.Ident(column), value)
}

// And joins filters into one conjunction. Nil filters are skipped.
func And(filters ...*QueryFilter) *QueryFilter {
	var (
		parts []string
		args  []interface{}
	)
	for _, f := range filters {
		if f == nil || f.Schema == "" {
			continue
		}
		parts = append(parts, "("+f.Schema+")")
		args = append(args, f.Args...)
	}
	if len(parts) == 0 {
		return nil
	}
	return NewQueryFilter(strings.Join(parts, " AND "), args...)
}

// Fields is a raw column → value map, used for bulk writes and as an
// alternative to typed input structs.
type Fields map[string]interface{}

// Paginator is implemented by list query parameters.
type Paginator interface {
	GetOffset() int
	GetLimit() int
}

// PaginationParams is the embeddable offset/limit pair for query structs.
type PaginationParams struct {
	Offset int `form:"offset" json:"offset" binding:"omitempty,min=0"`
	Limit  int `form:"limit" json:"limit" binding:"omitempty,min=0"`
}

func (p PaginationParams) GetOffset() int {
	if p.Offset < 0 {
		return DefaultQueryOffset
	}
	return p.Offset
}

func (p PaginationParams) GetLimit() int {
	if p.Limit <= 0 {
		return DefaultQueryLimit
	}
	return p.Limit
}

// NewPagination returns pagination params with the defaults applied.
func NewPagination(offset, limit int) PaginationParams {
	return PaginationParams{Offset: offset, Limit: limit}
}

// ListResult holds one page of items and the total number of matches.
type ListResult[T any] struct {
	Count int `json:"count"`
	Data  []T `json:"data"`
}

// NewListResult builds a ListResult; a nil page becomes an empty slice.
func NewListResult[T any](count int, items []T) ListResult[T] {
	if items == nil {
		items = make([]T, 0)
	}
	return ListResult[T]{Count: count, Data: items}
}
