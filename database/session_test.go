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
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func newMockDB(t *testing.T) (*bun.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestSessionBeginsLazilyAndRestartsAfterCommit(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()
	s := NewSession(db, nil)

	assert.False(t, s.InTransaction())
	require.NoError(t, s.Commit())

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	first, err := s.Conn(ctx)
	require.NoError(t, err)
	again, err := s.Conn(ctx)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.True(t, s.InTransaction())

	require.NoError(t, s.Commit())
	assert.False(t, s.InTransaction())

	_, err = s.Conn(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionCloseRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()
	s := NewSession(db, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := s.Conn(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = s.Conn(ctx)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.NoError(t, s.Close())
}

func TestOpenRejectsUnsupportedType(t *testing.T) {
	_, err := Open(context.Background(), &Config{ConnectionConfig: ConnectionConfig{Type: "oracle"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type: oracle")

	_, err = Open(context.Background(), nil)
	assert.Error(t, err)
}
