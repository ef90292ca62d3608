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

	"github.com/tomoncle/crudgate/database"
	"github.com/tomoncle/crudgate/types"
	"github.com/tomoncle/crudgate/users"
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Service registers and authenticates users.
type Service struct {
	users  *users.Service
	tokens *TokenProvider
	hasher *PasswordHasher
	logger database.Logger
}

func NewService(userService *users.Service, tokens *TokenProvider, hasher *PasswordHasher) *Service {
	return &Service{
		users:  userService,
		tokens: tokens,
		hasher: hasher,
		logger: database.NewDefaultLogger("AUTH"),
	}
}

// Register creates a regular user and signs them in.
func (s *Service) Register(ctx context.Context, uow database.UnitOfWork, in users.NewUser) (Tokens, error) {
	s.logger.Info("Registering user", "email", in.Email)
	user, err := s.users.Create(ctx, uow, in)
	if err != nil {
		return Tokens{}, err
	}
	return s.tokens.Issue(user.ID.String())
}

// Login checks the credentials. Unknown email and wrong password both
// yield a NotFoundError.
func (s *Service) Login(ctx context.Context, uow database.UnitOfWork, in Credentials) (Tokens, error) {
	s.logger.Info("Login attempt", "email", in.Email)
	user, err := s.users.FindByEmail(ctx, uow, in.Email)
	if err != nil {
		return Tokens{}, err
	}
	if !s.hasher.Compare(user.HashedPassword, in.Password) {
		return Tokens{}, types.NewNotFoundError("user", nil)
	}
	return s.tokens.Issue(user.ID.String())
}

// Refresh exchanges a refresh token of an existing user for a new pair.
func (s *Service) Refresh(ctx context.Context, uow database.UnitOfWork, refreshToken string) (Tokens, error) {
	claims, err := s.tokens.Verify(refreshToken, RefreshToken)
	if err != nil {
		return Tokens{}, &types.UnauthorizedError{Reason: "invalid refresh token"}
	}
	user, err := s.users.FindByID(ctx, uow, claims.Subject)
	if err != nil {
		if types.IsNotFound(err) {
			return Tokens{}, &types.UnauthorizedError{Reason: "unknown user"}
		}
		return Tokens{}, err
	}
	return s.tokens.Issue(user.ID.String())
}

// Authenticate resolves an access token to its user.
func (s *Service) Authenticate(ctx context.Context, uow database.UnitOfWork, accessToken string) (*users.User, error) {
	claims, err := s.tokens.Verify(accessToken, AccessToken)
	if err != nil {
		return nil, &types.UnauthorizedError{Reason: "invalid access token"}
	}
	user, err := s.users.FindByID(ctx, uow, claims.Subject)
	if err != nil {
		if types.IsNotFound(err) {
			return nil, &types.UnauthorizedError{Reason: "unknown user"}
		}
		return nil, err
	}
	return user, nil
}
