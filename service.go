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

package crudgate

import (
	"context"
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/tomoncle/crudgate/database"
	"github.com/tomoncle/crudgate/repository"
	"github.com/tomoncle/crudgate/types"
)

// Service is the business layer over one entity type E. C and U are the
// create and update inputs, G the shape of a single item, Q the list
// parameters and L the shape of a page.
type Service[E, C, G any, Q types.Paginator, L, U any] interface {
	// Create inserts input and returns the stored row shaped as G.
	Create(ctx context.Context, uow database.UnitOfWork, input C) (G, error)

	// GetByID returns one row or a *types.NotFoundError.
	GetByID(ctx context.Context, uow database.UnitOfWork, id any) (G, error)

	// GetAll returns one page of rows matching params plus the total count.
	GetAll(ctx context.Context, uow database.UnitOfWork, params Q) (L, error)

	// Update patches the row with the given id.
	Update(ctx context.Context, uow database.UnitOfWork, id any, input U) (G, error)

	// Delete removes the row with the given id.
	Delete(ctx context.Context, uow database.UnitOfWork, id any) error
}

// Shapes turns stored rows into output values.
type Shapes[E, G, L any] struct {
	Item func(row *E) (G, error)
	List func(count int, items []G) L
}

// ListComposer builds the prepared query for a set of list parameters.
type ListComposer[Q any] interface {
	BuildListQuery(params Q) repository.QueryComposer
}

// ListComposerFunc adapts a function to ListComposer.
type ListComposerFunc[Q any] func(params Q) repository.QueryComposer

func (f ListComposerFunc[Q]) BuildListQuery(params Q) repository.QueryComposer {
	return f(params)
}

// CopyItem is an Item shape that copies matching fields of E into a new G.
func CopyItem[E, G any](row *E) (G, error) {
	var out G
	if err := copier.Copy(&out, row); err != nil {
		return out, fmt.Errorf("shape %T: %w", row, err)
	}
	return out, nil
}

// ListResultShape is a List shape producing types.ListResult.
func ListResultShape[G any](count int, items []G) types.ListResult[G] {
	return types.NewListResult(count, items)
}

type serviceOptions struct {
	resource   string
	idColumn   string
	emptyPages bool
	logger     database.Logger
}

type Option func(*serviceOptions)

// WithEmptyPages makes GetAll return an empty page instead of a
// NotFoundError when nothing matches.
func WithEmptyPages() Option {
	return func(o *serviceOptions) { o.emptyPages = true }
}

// WithResource names the entity in NotFound and Conflict errors.
func WithResource(name string) Option {
	return func(o *serviceOptions) { o.resource = name }
}

// WithIDColumn sets the identifier column, "id" by default.
func WithIDColumn(column string) Option {
	return func(o *serviceOptions) { o.idColumn = column }
}

func WithLogger(logger database.Logger) Option {
	return func(o *serviceOptions) { o.logger = logger }
}

type baseService[E, C, G any, Q types.Paginator, L, U any] struct {
	repo     repository.Repository[E]
	composer ListComposer[Q]
	shapes   Shapes[E, G, L]
	opts     serviceOptions
}

// NewService builds a Service over repo. shapes.Item and shapes.List must
// both be set.
func NewService[E, C, G any, Q types.Paginator, L, U any](
	repo repository.Repository[E],
	composer ListComposer[Q],
	shapes Shapes[E, G, L],
	options ...Option,
) Service[E, C, G, Q, L, U] {
	if shapes.Item == nil || shapes.List == nil {
		panic("crudgate: Shapes.Item and Shapes.List are required")
	}
	opts := serviceOptions{resource: "resource", idColumn: "id"}
	for _, o := range options {
		o(&opts)
	}
	if opts.logger == nil {
		opts.logger = database.NewDefaultLogger("SERVICE")
	}
	return &baseService[E, C, G, Q, L, U]{
		repo:     repo,
		composer: composer,
		shapes:   shapes,
		opts:     opts,
	}
}

func (s *baseService[E, C, G, Q, L, U]) Create(ctx context.Context, uow database.UnitOfWork, input C) (G, error) {
	var zero G
	db, err := uow.Conn(ctx)
	if err != nil {
		return zero, err
	}
	row, err := s.repo.Create(ctx, db, input)
	if err != nil {
		return zero, s.fail(uow, s.writeError(err))
	}
	if err := uow.Commit(); err != nil {
		return zero, s.fail(uow, s.writeError(err))
	}
	return s.shapes.Item(row)
}

func (s *baseService[E, C, G, Q, L, U]) GetByID(ctx context.Context, uow database.UnitOfWork, id any) (G, error) {
	var zero G
	row, err := s.find(ctx, uow, id)
	if err != nil {
		return zero, s.fail(uow, err)
	}
	return s.shapes.Item(row)
}

func (s *baseService[E, C, G, Q, L, U]) GetAll(ctx context.Context, uow database.UnitOfWork, params Q) (L, error) {
	var zero L
	db, err := uow.Conn(ctx)
	if err != nil {
		return zero, err
	}
	composer := s.composer.BuildListQuery(params)

	rows, err := s.repo.GetPageFromPreparedQuery(ctx, db, composer, params.GetLimit(), params.GetOffset())
	if err != nil {
		return zero, s.fail(uow, err)
	}
	if len(rows) == 0 && !s.opts.emptyPages {
		return zero, s.fail(uow, types.NewNotFoundError(s.opts.resource, nil))
	}

	count, err := s.repo.CountFromPreparedQuery(ctx, db, composer)
	if err != nil {
		return zero, s.fail(uow, err)
	}

	items := make([]G, 0, len(rows))
	for _, row := range rows {
		item, err := s.shapes.Item(row)
		if err != nil {
			return zero, s.fail(uow, err)
		}
		items = append(items, item)
	}
	return s.shapes.List(count, items), nil
}

func (s *baseService[E, C, G, Q, L, U]) Update(ctx context.Context, uow database.UnitOfWork, id any, input U) (G, error) {
	var zero G
	if _, err := s.find(ctx, uow, id); err != nil {
		return zero, s.fail(uow, err)
	}
	db, err := uow.Conn(ctx)
	if err != nil {
		return zero, err
	}
	rows, err := s.repo.Update(ctx, db, types.Eq(s.opts.idColumn, id), input)
	if err != nil {
		return zero, s.fail(uow, s.writeError(err))
	}
	if len(rows) == 0 {
		return zero, s.fail(uow, types.NewNotFoundError(s.opts.resource, id))
	}
	if err := uow.Commit(); err != nil {
		return zero, s.fail(uow, s.writeError(err))
	}
	return s.shapes.Item(rows[0])
}

func (s *baseService[E, C, G, Q, L, U]) Delete(ctx context.Context, uow database.UnitOfWork, id any) error {
	if _, err := s.find(ctx, uow, id); err != nil {
		return s.fail(uow, err)
	}
	db, err := uow.Conn(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, db, types.Eq(s.opts.idColumn, id)); err != nil {
		return s.fail(uow, err)
	}
	if err := uow.Commit(); err != nil {
		return s.fail(uow, err)
	}
	return nil
}

func (s *baseService[E, C, G, Q, L, U]) find(ctx context.Context, uow database.UnitOfWork, id any) (*E, error) {
	db, err := uow.Conn(ctx)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.GetOneOrNone(ctx, db, types.Eq(s.opts.idColumn, id))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, types.NewNotFoundError(s.opts.resource, id)
	}
	return row, nil
}

func (s *baseService[E, C, G, Q, L, U]) writeError(err error) error {
	if database.IsConstraintViolation(err) {
		return types.NewConflictError(s.opts.resource, err)
	}
	return err
}

// fail rolls the unit of work back and returns err.
func (s *baseService[E, C, G, Q, L, U]) fail(uow database.UnitOfWork, err error) error {
	if rbErr := uow.Rollback(); rbErr != nil {
		s.opts.logger.Error("rollback failed", "resource", s.opts.resource, "error", rbErr, "cause", err)
	}
	return err
}
