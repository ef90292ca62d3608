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

package auth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/crudgate/database"
	"github.com/tomoncle/crudgate/repository"
	"github.com/tomoncle/crudgate/types"
	"github.com/tomoncle/crudgate/users"
)

type fixture struct {
	db     *database.Database
	auth   *Service
	tokens *TokenProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(context.Background(), &database.Config{
		ConnectionConfig: database.ConnectionConfig{
			Type:   "sqlite",
			DBName: filepath.Join(t.TempDir(), "auth.db"),
		},
		BootstrapConfig: database.BootstrapConfig{EnableMigrateOnStartup: true},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	hasher := NewPasswordHasher(4)
	tokens := newTestProvider(t)
	userService := users.NewService(repository.NewRepository[users.User](), hasher)
	return &fixture{db: db, auth: NewService(userService, tokens, hasher), tokens: tokens}
}

func TestRegisterLoginRefreshAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	email := gofakeit.Email()
	password := gofakeit.Password(true, true, true, false, false, 12)

	uow := f.db.NewSession()
	defer uow.Close()

	registered, err := f.auth.Register(ctx, uow, users.NewUser{Email: email, Password: password})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", registered.TokenType)

	user, err := f.auth.Authenticate(ctx, uow, registered.AccessToken)
	require.NoError(t, err)
	assert.False(t, user.IsAdmin)

	logged, err := f.auth.Login(ctx, uow, Credentials{Email: email, Password: password})
	require.NoError(t, err)
	claims, err := f.tokens.Verify(logged.AccessToken, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)

	refreshed, err := f.auth.Refresh(ctx, uow, logged.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, logged.RefreshToken, refreshed.RefreshToken)
}

func TestRegisterTwiceIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := users.NewUser{Email: gofakeit.Email(), Password: "password-1"}

	uow := f.db.NewSession()
	defer uow.Close()
	_, err := f.auth.Register(ctx, uow, in)
	require.NoError(t, err)
	_, err = f.auth.Register(ctx, uow, in)
	assert.True(t, types.IsConflict(err))
}

func TestLoginFailuresAreNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	email := gofakeit.Email()

	uow := f.db.NewSession()
	defer uow.Close()
	_, err := f.auth.Register(ctx, uow, users.NewUser{Email: email, Password: "right-password"})
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, uow, Credentials{Email: email, Password: "wrong-password"})
	assert.True(t, types.IsNotFound(err))
	_, err = f.auth.Login(ctx, uow, Credentials{Email: "nobody@example.com", Password: "right-password"})
	assert.True(t, types.IsNotFound(err))
}

func TestTokensAreRejectedAcrossKinds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	uow := f.db.NewSession()
	defer uow.Close()
	tokens, err := f.auth.Register(ctx, uow, users.NewUser{Email: gofakeit.Email(), Password: "password-1"})
	require.NoError(t, err)

	_, err = f.auth.Authenticate(ctx, uow, tokens.RefreshToken)
	assert.True(t, types.IsUnauthorized(err))
	_, err = f.auth.Refresh(ctx, uow, tokens.AccessToken)
	assert.True(t, types.IsUnauthorized(err))

	orphan, err := f.tokens.Issue("00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, uow, orphan.AccessToken)
	assert.True(t, types.IsUnauthorized(err))
}
