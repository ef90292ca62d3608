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
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/crudgate/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type widget struct {
	bun.BaseModel `bun:"table:widgets,alias:w"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Name      string    `bun:"name,notnull,unique"`
	Score     int       `bun:"score,notnull,default:0"`
	Note      *string   `bun:"note"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type widgetPatch struct {
	Score *int    `bun:"score"`
	Note  *string `bun:"note"`
}

func openWidgets(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+filepath.Join(t.TempDir(), "widgets.db"))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.NewCreateTable().Model((*widget)(nil)).Exec(context.Background())
	require.NoError(t, err)
	return db
}

func seedWidgets(t *testing.T, db *bun.DB, repo Repository[widget]) []*widget {
	t.Helper()
	rows, err := repo.CreateBulk(context.Background(), db, []types.Fields{
		{"name": "alpha", "score": 3},
		{"name": "alpine", "score": 9},
		{"name": "beta", "score": 5},
		{"name": "gamma", "score": 1},
	})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	return rows
}

func TestCreateReturnsStoredRow(t *testing.T) {
	db := openWidgets(t)
	repo := NewRepository[widget]()
	ctx := context.Background()

	note := "first"
	created, err := repo.Create(ctx, db, types.Fields{"name": "alpha", "score": 7, "note": &note})
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.Equal(t, 7, created.Score)
	require.NotNil(t, created.Note)
	assert.Equal(t, "first", *created.Note)
	assert.False(t, created.UpdatedAt.IsZero())

	_, err = repo.Create(ctx, db, types.Fields{"name": "beta", "colour": "red"})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = repo.Create(ctx, db, types.Fields{"note": nil})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestCreateBulkRejectsMixedColumns(t *testing.T) {
	db := openWidgets(t)
	repo := NewRepository[widget]()

	empty, err := repo.CreateBulk(context.Background(), db, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = repo.CreateBulk(context.Background(), db, []types.Fields{
		{"name": "a", "score": 1},
		{"name": "b"},
	})
	assert.Error(t, err)
}

func TestCreateBulkKeepsInsertOrder(t *testing.T) {
	db := openWidgets(t)
	repo := NewRepository[widget]()
	ctx := context.Background()

	rows, err := repo.CreateBulk(ctx, db, []types.Fields{
		{"name": "zulu", "note": "z"},
		{"name": "alpha", "note": "a"},
		{"name": "mike", "note": "m"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"zulu", "alpha", "mike"}, []string{rows[0].Name, rows[1].Name, rows[2].Name})
	assert.Positive(t, rows[0].ID)
	assert.Less(t, rows[0].ID, rows[1].ID)
	assert.Less(t, rows[1].ID, rows[2].ID)
	for _, row := range rows {
		assert.Zero(t, row.Score)
		assert.False(t, row.UpdatedAt.IsZero())
		require.NotNil(t, row.Note)
	}
	assert.Equal(t, "a", *rows[1].Note)

	stored, err := repo.GetOneOrNone(ctx, db, types.Eq("id", rows[2].ID))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "mike", stored.Name)
}

func TestGetOneOrNone(t *testing.T) {
	db := openWidgets(t)
	repo := NewRepository[widget]()
	ctx := context.Background()
	seedWidgets(t, db, repo)

	found, err := repo.GetOneOrNone(ctx, db, types.Eq("name", "beta"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 5, found.Score)

	missing, err := repo.GetOneOrNone(ctx, db, types.Eq("name", "delta"))
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.GetOneOrNone(ctx, db, types.NewQueryFilter("? > ?", bun.Ident("score"), 2))
	assert.ErrorIs(t, err, ErrMultipleRows)
}

func TestGetAllPaginatesByPrimaryKey(t *testing.T) {
	db := openWidgets(t)
	repo := NewRepository[widget]()
	ctx := context.Background()
	seeded := seedWidgets(t, db, repo)

	page, err := repo.GetAll(ctx, db, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, seeded[1].ID, page[0].ID)
	assert.Equal(t, seeded[2].ID, page[1].ID)

	count, err := repo.Count(ctx, db, types.NewQueryFilter("? >= ?", bun.Ident("score"), 3))
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPatternMatchAndSorting(t *testing.T) {
	db := openWidgets(t)
	repo := NewRepository[widget]()
	ctx := context.Background()
	seedWidgets(t, db, repo)

	matched, err := repo.GetAllWithPatternMatch(ctx, db, map[string]string{"name": "ALP"}, 0, 10)
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, "alpha", matched[0].Name)
	assert.Equal(t, "alpine", matched[1].Name)

	count, err := repo.CountWithPatternMatch(ctx, db, map[string]string{"name": "alp"}, types.Eq("score", 9))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = repo.GetAllWithPatternMatch(ctx, db, map[string]string{"colour": "x"}, 0, 10)
	assert.ErrorIs(t, err, ErrUnknownColumn)

	top, err := repo.GetAllSorted(ctx, db, "score", false, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, []string{"alpine", "beta"}, []string{top[0].Name, top[1].Name})

	_, err = repo.GetAllSorted(ctx, db, "colour", true, 0)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestPreparedQueryPagination(t *testing.T) {
	db := openWidgets(t)
	repo := NewRepository[widget]()
	ctx := context.Background()
	seedWidgets(t, db, repo)

	composer := QueryComposer(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? < ?", bun.Ident("w.score"), 9).OrderExpr("? ASC", bun.Ident("w.score"))
	})

	page, err := repo.GetPageFromPreparedQuery(ctx, db, composer, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "gamma", page[0].Name)
	assert.Equal(t, "alpha", page[1].Name)

	count, err := repo.CountFromPreparedQuery(ctx, db, composer)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestUpdateSkipsUnsetFields(t *testing.T) {
	db := openWidgets(t)
	repo := NewRepository[widget]()
	ctx := context.Background()
	seeded := seedWidgets(t, db, repo)

	score := 42
	updated, err := repo.Update(ctx, db, types.Eq("id", seeded[0].ID), widgetPatch{Score: &score})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, 42, updated[0].Score)
	assert.Nil(t, updated[0].Note)

	unchanged, err := repo.Update(ctx, db, types.Eq("id", seeded[1].ID), widgetPatch{})
	require.NoError(t, err)
	require.Len(t, unchanged, 1)
	assert.Equal(t, 9, unchanged[0].Score)

	none, err := repo.Update(ctx, db, types.Eq("id", -1), widgetPatch{Score: &score})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = repo.Update(ctx, db, nil, types.Fields{"colour": "red"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestUpdateBulkNeedsPrimaryKey(t *testing.T) {
	db := openWidgets(t)
	repo := NewRepository[widget]()
	ctx := context.Background()
	seeded := seedWidgets(t, db, repo)

	updated, err := repo.UpdateBulk(ctx, db, []types.Fields{
		{"id": seeded[2].ID, "score": 50},
		{"id": seeded[3].ID, "score": 60},
	})
	require.NoError(t, err)
	require.Len(t, updated, 2)
	assert.Equal(t, 50, updated[0].Score)
	assert.Equal(t, 60, updated[1].Score)

	_, err = repo.UpdateBulk(ctx, db, []types.Fields{{"score": 1}})
	assert.Error(t, err)
}

func TestUpdateBulkPersistsEachPatch(t *testing.T) {
	db := openWidgets(t)
	repo := NewRepository[widget]()
	ctx := context.Background()
	seeded := seedWidgets(t, db, repo)

	updated, err := repo.UpdateBulk(ctx, db, []types.Fields{
		{"id": seeded[0].ID, "score": 11, "note": "first"},
		{"id": seeded[3].ID, "name": "omega"},
	})
	require.NoError(t, err)
	require.Len(t, updated, 2)
	assert.Equal(t, seeded[0].ID, updated[0].ID)
	assert.Equal(t, "omega", updated[1].Name)

	first, err := repo.GetOneOrNone(ctx, db, types.Eq("id", seeded[0].ID))
	require.NoError(t, err)
	assert.Equal(t, 11, first.Score)
	require.NotNil(t, first.Note)
	assert.Equal(t, "first", *first.Note)

	last, err := repo.GetOneOrNone(ctx, db, types.Eq("id", seeded[3].ID))
	require.NoError(t, err)
	assert.Equal(t, "omega", last.Name)
	assert.Equal(t, 1, last.Score)

	untouched, err := repo.GetOneOrNone(ctx, db, types.Eq("id", seeded[1].ID))
	require.NoError(t, err)
	assert.Equal(t, 9, untouched.Score)
}

func TestPatternMatchIsORAcrossFieldsAndANDWithFilters(t *testing.T) {
	db := openWidgets(t)
	repo := NewRepository[widget]()
	ctx := context.Background()

	for _, row := range []types.Fields{
		{"name": "alpha", "note": "red"},
		{"name": "beta", "note": "Alpine route"},
		{"name": "gamma", "note": "blue"},
		{"name": "alpaca", "score": 9},
	} {
		_, err := repo.Create(ctx, db, row)
		require.NoError(t, err)
	}
	search := map[string]string{"name": "alp", "note": "alp"}

	count, err := repo.CountWithPatternMatch(ctx, db, search)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = repo.CountWithPatternMatch(ctx, db, search, types.Eq("score", 0))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	matched, err := repo.GetAllWithPatternMatch(ctx, db, search, 0, 10, types.Eq("score", 0))
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, []string{"alpha", "beta"}, []string{matched[0].Name, matched[1].Name})

	sorted, err := repo.GetAllSorted(ctx, db, "note", true, 0)
	require.NoError(t, err)
	require.Len(t, sorted, 3)
	assert.Equal(t, []string{"beta", "gamma", "alpha"}, []string{sorted[0].Name, sorted[1].Name, sorted[2].Name})
}

func TestUpdateWithoutReturningRereadsByPrimaryKey(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, mysqldialect.New())
	defer db.Close()

	columns := []string{"id", "name", "score", "note", "updated_at"}
	now := time.Now()
	mock.ExpectQuery("SELECT .* FROM `widgets` AS `w` WHERE .*'alpha'").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(1), "alpha", int64(3), nil, now))
	mock.ExpectExec("UPDATE `widgets`.*SET `name` = 'renamed'").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .* FROM `widgets` AS `w` WHERE .*`id` = 1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(1), "renamed", int64(3), nil, now))

	updated, err := NewRepository[widget]().Update(context.Background(), db, types.Eq("name", "alpha"), types.Fields{"name": "renamed"})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, "renamed", updated[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	db := openWidgets(t)
	repo := NewRepository[widget]()
	ctx := context.Background()
	seedWidgets(t, db, repo)

	require.NoError(t, repo.Delete(ctx, db, types.Eq("name", "beta")))
	count, err := repo.Count(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, repo.Delete(ctx, db))
	count, err = repo.Count(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteWithoutFilterMatchesAll(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	mock.ExpectExec(`DELETE FROM "widgets".*WHERE \(1 = 1\)`).WillReturnResult(sqlmock.NewResult(0, 4))
	require.NoError(t, NewRepository[widget]().Delete(context.Background(), db, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
