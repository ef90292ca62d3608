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
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/tomoncle/crudgate/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any] struct{}

// NewRepository returns a generic repository for the Bun model T.
func NewRepository[T any]() Repository[T] {
	return &baseRepositoryImpl[T]{}
}

func (r *baseRepositoryImpl[T]) table(db bun.IDB) *schema.Table {
	return db.Dialect().Tables().Get(reflect.TypeOf((*T)(nil)).Elem())
}

func (r *baseRepositoryImpl[T]) Create(ctx context.Context, db bun.IDB, input any) (*T, error) {
	values, err := r.writableFields(db, input)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, ErrEmptyInput
	}
	table := r.table(db)
	row := map[string]interface{}(values)
	query := db.NewInsert().Model(&row).TableExpr("?", table.SQLName)

	if db.Dialect().Features().Has(feature.InsertReturning) {
		entity := new(T)
		if err := query.Returning("*").Scan(ctx, entity); err != nil {
			return nil, err
		}
		return entity, nil
	}

	res, err := query.Exec(ctx)
	if err != nil {
		return nil, err
	}
	match, err := insertedKey(table, values, res)
	if err != nil {
		return nil, err
	}
	return r.GetOneOrNone(ctx, db, match)
}

func (r *baseRepositoryImpl[T]) CreateBulk(ctx context.Context, db bun.IDB, rows []types.Fields) ([]*T, error) {
	entities := make([]*T, 0, len(rows))
	if len(rows) == 0 {
		return entities, nil
	}
	if !db.Dialect().Features().Has(feature.InsertReturning) {
		for _, row := range rows {
			entity, err := r.Create(ctx, db, row)
			if err != nil {
				return nil, err
			}
			entities = append(entities, entity)
		}
		return entities, nil
	}

	table := r.table(db)
	var (
		first   types.Fields
		columns []string
	)
	for i, row := range rows {
		fields, err := r.writableFields(db, row)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			return nil, ErrEmptyInput
		}
		if i == 0 {
			first, columns = fields, sortedKeys(fields)
		} else if !sameKeys(fields, first) {
			return nil, fmt.Errorf("repository: bulk rows must set the same columns (row %d)", i)
		}
		entity := new(T)
		if err := assignFields(table, entity, fields); err != nil {
			return nil, fmt.Errorf("repository: row %d: %w", i, err)
		}
		entities = append(entities, entity)
	}
	err := db.NewInsert().
		Model(&entities).
		Column(columns...).
		Returning("*").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) GetOneOrNone(ctx context.Context, db bun.IDB, filters ...*types.QueryFilter) (*T, error) {
	var entities []*T
	query := applyFilters(db.NewSelect().Model(&entities), filters)
	if err := query.Limit(2).Scan(ctx); err != nil {
		return nil, err
	}
	switch len(entities) {
	case 0:
		return nil, nil
	case 1:
		return entities[0], nil
	default:
		return nil, ErrMultipleRows
	}
}

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context, db bun.IDB, offset, limit int, filters ...*types.QueryFilter) ([]*T, error) {
	entities := make([]*T, 0)
	query := applyFilters(db.NewSelect().Model(&entities), filters)
	query = r.orderByPK(db, query)
	if err := paginate(query, offset, limit).Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) GetAllWithPatternMatch(ctx context.Context, db bun.IDB, search map[string]string, offset, limit int, filters ...*types.QueryFilter) ([]*T, error) {
	entities := make([]*T, 0)
	query, err := r.applySearch(db, db.NewSelect().Model(&entities), search)
	if err != nil {
		return nil, err
	}
	query = r.orderByPK(db, applyFilters(query, filters))
	if err := paginate(query, offset, limit).Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) GetAllSorted(ctx context.Context, db bun.IDB, sortField string, ascending bool, limit int, filters ...*types.QueryFilter) ([]*T, error) {
	if err := r.checkColumn(db, sortField); err != nil {
		return nil, err
	}
	direction := "DESC"
	if ascending {
		direction = "ASC"
	}
	entities := make([]*T, 0)
	query := applyFilters(db.NewSelect().Model(&entities), filters).
		Where("? IS NOT NULL", bun.Ident(sortField)).
		OrderExpr("? "+direction, bun.Ident(sortField))
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) GetPageFromPreparedQuery(ctx context.Context, db bun.IDB, composer QueryComposer, limit, offset int) ([]*T, error) {
	entities := make([]*T, 0)
	query := db.NewSelect().Model(&entities)
	if composer != nil {
		query = composer(query)
	}
	if err := paginate(query, offset, limit).Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, db bun.IDB, match *types.QueryFilter, input any) ([]*T, error) {
	values, err := r.writableFields(db, input)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return r.listMatching(ctx, db, match)
	}

	table := r.table(db)
	query := db.NewUpdate().Model((*T)(nil))
	for _, column := range sortedKeys(values) {
		query = query.Set("? = ?", bun.Ident(column), values[column])
	}
	if _, ok := table.FieldMap["updated_at"]; ok {
		if _, set := values["updated_at"]; !set {
			query = query.Set("? = CURRENT_TIMESTAMP", bun.Ident("updated_at"))
		}
	}
	if match != nil {
		query = query.Where(match.Schema, match.Args...)
	} else {
		query = query.Where("1 = 1")
	}

	if db.Dialect().Features().Has(feature.Returning) {
		entities := make([]*T, 0)
		if err := query.Returning("*").Scan(ctx, &entities); err != nil {
			return nil, err
		}
		return entities, nil
	}
	// Without RETURNING the patch may rewrite the columns match reads, so
	// the rows are located first and re-read by primary key.
	before, err := r.listMatching(ctx, db, match)
	if err != nil || len(before) == 0 {
		return before, err
	}
	if _, err := query.Exec(ctx); err != nil {
		return nil, err
	}
	entities := make([]*T, 0, len(before))
	for _, row := range before {
		key, err := primaryKeyFilter(table, row)
		if err != nil {
			return nil, err
		}
		updated, err := r.GetOneOrNone(ctx, db, key)
		if err != nil {
			return nil, err
		}
		if updated != nil {
			entities = append(entities, updated)
		}
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) UpdateBulk(ctx context.Context, db bun.IDB, patches []types.Fields) ([]*T, error) {
	table := r.table(db)
	if len(table.PKs) == 0 {
		return nil, fmt.Errorf("repository: %s has no primary key", table.Name)
	}
	entities := make([]*T, 0, len(patches))
	for i, patch := range patches {
		values := make(types.Fields, len(patch))
		var keys []*types.QueryFilter
		for column, value := range patch {
			values[column] = value
		}
		for _, pk := range table.PKs {
			value, ok := values[pk.Name]
			if !ok || value == nil {
				return nil, fmt.Errorf("repository: patch %d is missing primary key %q", i, pk.Name)
			}
			keys = append(keys, types.Eq(pk.Name, value))
			delete(values, pk.Name)
		}
		updated, err := r.Update(ctx, db, types.And(keys...), values)
		if err != nil {
			return nil, err
		}
		entities = append(entities, updated...)
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, db bun.IDB, filters ...*types.QueryFilter) error {
	query := db.NewDelete().Model((*T)(nil))
	applied := false
	for _, f := range filters {
		if f == nil {
			continue
		}
		query = query.Where(f.Schema, f.Args...)
		applied = true
	}
	if !applied {
		query = query.Where("1 = 1")
	}
	_, err := query.Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, db bun.IDB, filters ...*types.QueryFilter) (int, error) {
	return applyFilters(db.NewSelect().Model((*T)(nil)), filters).Count(ctx)
}

func (r *baseRepositoryImpl[T]) CountWithPatternMatch(ctx context.Context, db bun.IDB, search map[string]string, filters ...*types.QueryFilter) (int, error) {
	query, err := r.applySearch(db, db.NewSelect().Model((*T)(nil)), search)
	if err != nil {
		return 0, err
	}
	return applyFilters(query, filters).Count(ctx)
}

func (r *baseRepositoryImpl[T]) CountFromPreparedQuery(ctx context.Context, db bun.IDB, composer QueryComposer) (int, error) {
	query := db.NewSelect().Model((*T)(nil))
	if composer != nil {
		query = composer(query)
	}
	return query.Count(ctx)
}

func (r *baseRepositoryImpl[T]) listMatching(ctx context.Context, db bun.IDB, match *types.QueryFilter) ([]*T, error) {
	entities := make([]*T, 0)
	if err := applyFilters(db.NewSelect().Model(&entities), []*types.QueryFilter{match}).Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) applySearch(db bun.IDB, query *bun.SelectQuery, search map[string]string) (*bun.SelectQuery, error) {
	if len(search) == 0 {
		return query, nil
	}
	columns := make([]string, 0, len(search))
	for column := range search {
		if err := r.checkColumn(db, column); err != nil {
			return nil, err
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return query.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, column := range columns {
			pattern := "%" + strings.ToLower(search[column]) + "%"
			q = q.WhereOr("LOWER(?) LIKE ?", bun.Ident(column), pattern)
		}
		return q
	}), nil
}

func (r *baseRepositoryImpl[T]) orderByPK(db bun.IDB, query *bun.SelectQuery) *bun.SelectQuery {
	for _, pk := range r.table(db).PKs {
		query = query.OrderExpr("? ASC", bun.Ident(pk.Name))
	}
	return query
}

func (r *baseRepositoryImpl[T]) checkColumn(db bun.IDB, column string) error {
	table := r.table(db)
	if _, ok := table.FieldMap[column]; !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table.Name, column)
	}
	return nil
}

// writableFields resolves input into column values for T, dropping nil
// values and rejecting columns T does not declare.
func (r *baseRepositoryImpl[T]) writableFields(db bun.IDB, input any) (types.Fields, error) {
	values, err := fieldsOf(db, input)
	if err != nil {
		return nil, err
	}
	for column := range values {
		if err := r.checkColumn(db, column); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func applyFilters(query *bun.SelectQuery, filters []*types.QueryFilter) *bun.SelectQuery {
	for _, f := range filters {
		if f == nil {
			continue
		}
		query = query.Where(f.Schema, f.Args...)
	}
	return query
}

func paginate(query *bun.SelectQuery, offset, limit int) *bun.SelectQuery {
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	return query
}

func insertedKey(table *schema.Table, values types.Fields, res interface{ LastInsertId() (int64, error) }) (*types.QueryFilter, error) {
	if len(table.PKs) == 0 {
		return nil, fmt.Errorf("repository: %s has no primary key", table.Name)
	}
	var keys []*types.QueryFilter
	for _, pk := range table.PKs {
		if value, ok := values[pk.Name]; ok {
			keys = append(keys, types.Eq(pk.Name, value))
			continue
		}
		if len(table.PKs) > 1 {
			return nil, fmt.Errorf("repository: composite key column %q was not supplied", pk.Name)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		keys = append(keys, types.Eq(pk.Name, id))
	}
	return types.And(keys...), nil
}

// assignFields copies column values onto the struct fields of entity.
func assignFields(table *schema.Table, entity any, values types.Fields) error {
	strct := reflect.ValueOf(entity).Elem()
	for column, value := range values {
		field, ok := table.FieldMap[column]
		if !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table.Name, column)
		}
		if err := setValue(field.Value(strct), reflect.ValueOf(value)); err != nil {
			return fmt.Errorf("column %s: %w", column, err)
		}
	}
	return nil
}

func setValue(dst, src reflect.Value) error {
	switch {
	case src.Type().AssignableTo(dst.Type()):
		dst.Set(src)
	case dst.Kind() == reflect.Ptr && src.Type().AssignableTo(dst.Type().Elem()):
		ptr := reflect.New(dst.Type().Elem())
		ptr.Elem().Set(src)
		dst.Set(ptr)
	case dst.Kind() == reflect.Ptr && src.Type().ConvertibleTo(dst.Type().Elem()):
		ptr := reflect.New(dst.Type().Elem())
		ptr.Elem().Set(src.Convert(dst.Type().Elem()))
		dst.Set(ptr)
	case src.Type().ConvertibleTo(dst.Type()):
		dst.Set(src.Convert(dst.Type()))
	default:
		return fmt.Errorf("cannot assign %s to %s", src.Type(), dst.Type())
	}
	return nil
}

func primaryKeyFilter(table *schema.Table, entity any) (*types.QueryFilter, error) {
	if len(table.PKs) == 0 {
		return nil, fmt.Errorf("repository: %s has no primary key", table.Name)
	}
	strct := reflect.ValueOf(entity).Elem()
	keys := make([]*types.QueryFilter, 0, len(table.PKs))
	for _, pk := range table.PKs {
		keys = append(keys, types.Eq(pk.Name, pk.Value(strct).Interface()))
	}
	return types.And(keys...), nil
}

func sortedKeys(values types.Fields) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sameKeys(a types.Fields, b map[string]interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
