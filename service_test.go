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
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/crudgate/database"
	"github.com/tomoncle/crudgate/repository"
	"github.com/tomoncle/crudgate/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type note struct {
	bun.BaseModel `bun:"table:notes,alias:n"`

	ID     int64  `bun:"id,pk,autoincrement"`
	Title  string `bun:"title,notnull,unique"`
	Secret string `bun:"secret"`
}

type noteView struct {
	ID    int64
	Title string
}

type newNote struct {
	Title  string `bun:"title"`
	Secret string `bun:"secret"`
}

type notePatch struct {
	Title *string `bun:"title"`
}

type noteQuery struct {
	types.PaginationParams
	Title string
}

type noteService = Service[note, newNote, noteView, noteQuery, types.ListResult[noteView], notePatch]

var noteComposer = ListComposerFunc[noteQuery](func(q noteQuery) repository.QueryComposer {
	return func(sq *bun.SelectQuery) *bun.SelectQuery {
		if q.Title != "" {
			sq = sq.Where("? LIKE ?", bun.Ident("n.title"), "%"+q.Title+"%")
		}
		return sq.OrderExpr("? ASC", bun.Ident("n.id"))
	}
})

var noteShapes = Shapes[note, noteView, types.ListResult[noteView]]{
	Item: CopyItem[note, noteView],
	List: ListResultShape[noteView],
}

func newNoteService(options ...Option) noteService {
	options = append([]Option{WithResource("note")}, options...)
	return NewService[note, newNote, noteView, noteQuery, types.ListResult[noteView], notePatch](
		repository.NewRepository[note](), noteComposer, noteShapes, options...)
}

func openNotes(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+filepath.Join(t.TempDir(), "notes.db"))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.NewCreateTable().Model((*note)(nil)).Exec(context.Background())
	require.NoError(t, err)
	return db
}

func TestCreateShapesAndCommits(t *testing.T) {
	db := openNotes(t)
	svc := newNoteService()
	ctx := context.Background()

	uow := database.NewSession(db, nil)
	defer uow.Close()

	view, err := svc.Create(ctx, uow, newNote{Title: "first", Secret: "s3cr3t"})
	require.NoError(t, err)
	assert.Positive(t, view.ID)
	assert.Equal(t, "first", view.Title)
	assert.False(t, uow.InTransaction())

	count, err := db.NewSelect().Model((*note)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateDuplicateIsConflict(t *testing.T) {
	db := openNotes(t)
	svc := newNoteService()
	ctx := context.Background()
	uow := database.NewSession(db, nil)
	defer uow.Close()

	_, err := svc.Create(ctx, uow, newNote{Title: "same"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, uow, newNote{Title: "same"})
	require.Error(t, err)
	assert.True(t, types.IsConflict(err))
	assert.False(t, uow.InTransaction())

	_, err = svc.Create(ctx, uow, newNote{Title: "other"})
	assert.NoError(t, err)
}

func TestGetByIDMissingIsNotFound(t *testing.T) {
	db := openNotes(t)
	svc := newNoteService()
	uow := database.NewSession(db, nil)
	defer uow.Close()

	_, err := svc.GetByID(context.Background(), uow, 99)
	require.Error(t, err)
	assert.True(t, types.IsNotFound(err))
	assert.Contains(t, err.Error(), "note")
}

func TestGetAllPagesAndCounts(t *testing.T) {
	db := openNotes(t)
	svc := newNoteService()
	ctx := context.Background()
	uow := database.NewSession(db, nil)
	defer uow.Close()

	for _, title := range []string{"apple", "apricot", "banana"} {
		_, err := svc.Create(ctx, uow, newNote{Title: title})
		require.NoError(t, err)
	}

	page, err := svc.GetAll(ctx, uow, noteQuery{PaginationParams: types.NewPagination(1, 1), Title: "ap"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "apricot", page.Data[0].Title)

	_, err = svc.GetAll(ctx, uow, noteQuery{Title: "cherry"})
	assert.True(t, types.IsNotFound(err))

	empty, err := newNoteService(WithEmptyPages()).GetAll(ctx, uow, noteQuery{Title: "cherry"})
	require.NoError(t, err)
	assert.Zero(t, empty.Count)
	assert.NotNil(t, empty.Data)
	assert.Empty(t, empty.Data)
}

func TestUpdateAndDelete(t *testing.T) {
	db := openNotes(t)
	svc := newNoteService()
	ctx := context.Background()
	uow := database.NewSession(db, nil)
	defer uow.Close()

	a, err := svc.Create(ctx, uow, newNote{Title: "a"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, uow, newNote{Title: "b"})
	require.NoError(t, err)

	title := "renamed"
	updated, err := svc.Update(ctx, uow, a.ID, notePatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)

	same, err := svc.Update(ctx, uow, a.ID, notePatch{})
	require.NoError(t, err)
	assert.Equal(t, "renamed", same.Title)

	taken := "b"
	_, err = svc.Update(ctx, uow, a.ID, notePatch{Title: &taken})
	assert.True(t, types.IsConflict(err))

	_, err = svc.Update(ctx, uow, 404, notePatch{Title: &title})
	assert.True(t, types.IsNotFound(err))

	require.NoError(t, svc.Delete(ctx, uow, b.ID))
	_, err = svc.GetByID(ctx, uow, b.ID)
	assert.True(t, types.IsNotFound(err))
	assert.True(t, types.IsNotFound(svc.Delete(ctx, uow, b.ID)))
}

func TestUpdateMissingRowIssuesNoWrite(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "notes" AS "n"`).WillReturnRows(sqlmock.NewRows([]string{"id", "title", "secret"}))
	mock.ExpectRollback()

	title := "x"
	uow := database.NewSession(db, nil)
	_, err = newNoteService().Update(context.Background(), uow, 7, notePatch{Title: &title})
	assert.True(t, types.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewServiceRequiresShapes(t *testing.T) {
	assert.Panics(t, func() {
		NewService[note, newNote, noteView, noteQuery, types.ListResult[noteView], notePatch](
			repository.NewRepository[note](), noteComposer, Shapes[note, noteView, types.ListResult[noteView]]{})
	})
}
