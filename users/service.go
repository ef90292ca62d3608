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

package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tomoncle/crudgate"
	"github.com/tomoncle/crudgate/database"
	"github.com/tomoncle/crudgate/repository"
	"github.com/tomoncle/crudgate/types"
)

const resourceName = "user"

// PasswordHasher turns a plain password into the stored hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Service manages accounts. Passwords are hashed here, everything else is
// delegated to the generic service.
type Service struct {
	repo   repository.Repository[User]
	crud   crudgate.Service[User, createRow, AdminUserView, Query, UserList, patchRow]
	hasher PasswordHasher
	logger database.Logger
}

func NewService(repo repository.Repository[User], hasher PasswordHasher) *Service {
	logger := database.NewDefaultLogger("SERVICE")
	crud := crudgate.NewService[User, createRow, AdminUserView, Query, UserList, patchRow](
		repo,
		queryComposer{},
		crudgate.Shapes[User, AdminUserView, UserList]{
			Item: crudgate.CopyItem[User, AdminUserView],
			List: crudgate.ListResultShape[AdminUserView],
		},
		crudgate.WithResource(resourceName),
		crudgate.WithEmptyPages(),
		crudgate.WithLogger(logger),
	)
	return &Service{repo: repo, crud: crud, hasher: hasher, logger: logger}
}

// Create registers a regular account.
func (s *Service) Create(ctx context.Context, uow database.UnitOfWork, in NewUser) (AdminUserView, error) {
	return s.CreateByAdmin(ctx, uow, NewUserByAdmin{Email: in.Email, Password: in.Password})
}

// CreateByAdmin creates an account with an explicit admin flag.
func (s *Service) CreateByAdmin(ctx context.Context, uow database.UnitOfWork, in NewUserByAdmin) (AdminUserView, error) {
	s.logger.Info("Creating user", "email", in.Email, "is_admin", in.IsAdmin)
	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		_ = uow.Rollback()
		return AdminUserView{}, fmt.Errorf("hash password: %w", err)
	}
	return s.crud.Create(ctx, uow, createRow{
		ID:             uuid.New(),
		Email:          normalizeEmail(in.Email),
		HashedPassword: hashed,
		IsAdmin:        in.IsAdmin,
	})
}

func (s *Service) GetByID(ctx context.Context, uow database.UnitOfWork, id string) (AdminUserView, error) {
	return s.crud.GetByID(ctx, uow, id)
}

func (s *Service) GetAll(ctx context.Context, uow database.UnitOfWork, q Query) (UserList, error) {
	return s.crud.GetAll(ctx, uow, q)
}

// Update applies a self-service patch; the admin flag cannot change.
func (s *Service) Update(ctx context.Context, uow database.UnitOfWork, id string, in UserPatch) (AdminUserView, error) {
	return s.UpdateByAdmin(ctx, uow, id, AdminUserPatch{Email: in.Email, Password: in.Password})
}

func (s *Service) UpdateByAdmin(ctx context.Context, uow database.UnitOfWork, id string, in AdminUserPatch) (AdminUserView, error) {
	s.logger.Info("Updating user", "id", id)
	patch := patchRow{IsAdmin: in.IsAdmin}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		patch.Email = &email
	}
	if in.Password != nil && *in.Password != "" {
		hashed, err := s.hasher.Hash(*in.Password)
		if err != nil {
			_ = uow.Rollback()
			return AdminUserView{}, fmt.Errorf("hash password: %w", err)
		}
		patch.HashedPassword = &hashed
	}
	return s.crud.Update(ctx, uow, id, patch)
}

func (s *Service) Delete(ctx context.Context, uow database.UnitOfWork, id string) error {
	s.logger.Info("Deleting user", "id", id)
	return s.crud.Delete(ctx, uow, id)
}

// FindByEmail returns the stored account, including the password hash,
// or a NotFoundError.
func (s *Service) FindByEmail(ctx context.Context, uow database.UnitOfWork, email string) (*User, error) {
	return s.findOne(ctx, uow, types.Eq("email", normalizeEmail(email)), email)
}

// FindByID is FindByEmail keyed by identifier.
func (s *Service) FindByID(ctx context.Context, uow database.UnitOfWork, id string) (*User, error) {
	return s.findOne(ctx, uow, types.Eq("id", id), id)
}

func (s *Service) findOne(ctx context.Context, uow database.UnitOfWork, filter *types.QueryFilter, key string) (*User, error) {
	db, err := uow.Conn(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetOneOrNone(ctx, db, filter)
	if err != nil {
		_ = uow.Rollback()
		return nil, err
	}
	if user == nil {
		_ = uow.Rollback()
		return nil, types.NewNotFoundError(resourceName, key)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
