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
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/uptrace/bun"
)

// UnitOfWork is a transactional scope handed to services. Conn returns the
// connection statements run on; Commit and Rollback end the current scope.
type UnitOfWork interface {
	Conn(ctx context.Context) (bun.IDB, error)
	Commit() error
	Rollback() error
}

// Session is the default UnitOfWork. The transaction starts lazily on the
// first Conn call and a new one starts after every Commit or Rollback.
type Session struct {
	db     *bun.DB
	opts   *sql.TxOptions
	mu     sync.Mutex
	tx     *bun.Tx
	closed bool
}

var _ UnitOfWork = (*Session)(nil)

var ErrSessionClosed = errors.New("database: session is closed")

// NewSession opens a session on db. opts may be nil.
func NewSession(db *bun.DB, opts *sql.TxOptions) *Session {
	return &Session{db: db, opts: opts}
}

func (s *Session) Conn(ctx context.Context) (bun.IDB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, s.opts)
		if err != nil {
			return nil, fmt.Errorf("begin transaction: %w", err)
		}
		s.tx = &tx
	}
	return s.tx, nil
}

func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	return tx.Commit()
}

func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollbackLocked()
}

// Close rolls back any open transaction and refuses further use.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.rollbackLocked()
}

// InTransaction reports whether a transaction is currently open.
func (s *Session) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx != nil
}

func (s *Session) rollbackLocked() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
