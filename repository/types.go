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

package repository

import (
	"context"
	"errors"

	"github.com/tomoncle/crudgate/types"
	"github.com/uptrace/bun"
)

var (
	// ErrMultipleRows is returned by GetOneOrNone when more than one row matches.
	ErrMultipleRows = errors.New("repository: multiple rows match a zero-or-one lookup")
	// ErrUnknownColumn is returned when a caller names a column the model does not have.
	ErrUnknownColumn = errors.New("repository: unknown column")
	// ErrEmptyInput is returned when a write carries no fields.
	ErrEmptyInput = errors.New("repository: no fields to write")
)

// QueryComposer is a prepared filter expression: it narrows and orders a
// select but leaves pagination to the repository.
type QueryComposer func(q *bun.SelectQuery) *bun.SelectQuery

// CrudRepository defines basic CRUD operations for a generic entity type.
// Every method runs on the caller's unit of work and never commits.
type CrudRepository[T any] interface {
	Create(ctx context.Context, db bun.IDB, input any) (*T, error)

	CreateBulk(ctx context.Context, db bun.IDB, rows []types.Fields) ([]*T, error)

	GetOneOrNone(ctx context.Context, db bun.IDB, filters ...*types.QueryFilter) (*T, error)

	GetAll(ctx context.Context, db bun.IDB, offset, limit int, filters ...*types.QueryFilter) ([]*T, error)

	Update(ctx context.Context, db bun.IDB, match *types.QueryFilter, input any) ([]*T, error)

	UpdateBulk(ctx context.Context, db bun.IDB, patches []types.Fields) ([]*T, error)

	Delete(ctx context.Context, db bun.IDB, filters ...*types.QueryFilter) error

	Count(ctx context.Context, db bun.IDB, filters ...*types.QueryFilter) (int, error)
}

// SearchRepository adds substring search and sorted listing.
type SearchRepository[T any] interface {
	GetAllWithPatternMatch(ctx context.Context, db bun.IDB, search map[string]string, offset, limit int, filters ...*types.QueryFilter) ([]*T, error)
	CountWithPatternMatch(ctx context.Context, db bun.IDB, search map[string]string, filters ...*types.QueryFilter) (int, error)
	GetAllSorted(ctx context.Context, db bun.IDB, sortField string, ascending bool, limit int, filters ...*types.QueryFilter) ([]*T, error)
}

// PageQueryRepository defines pagination over caller-composed queries.
type PageQueryRepository[T any] interface {
	GetPageFromPreparedQuery(ctx context.Context, db bun.IDB, query QueryComposer, limit, offset int) ([]*T, error)
	CountFromPreparedQuery(ctx context.Context, db bun.IDB, query QueryComposer) (int, error)
}

// Repository combines CRUD, search and pagination operations.
type Repository[T any] interface {
	CrudRepository[T]
	SearchRepository[T]
	PageQueryRepository[T]
}
