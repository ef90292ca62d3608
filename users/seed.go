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

	"github.com/google/uuid"
	"github.com/tomoncle/crudgate/database"
	"github.com/tomoncle/crudgate/repository"
	"github.com/tomoncle/crudgate/types"
	"github.com/uptrace/bun"
)

// AdminSeedVersion is the bootstrap step that creates the first admin.
const AdminSeedVersion = "002"

// RegisterAdminSeed schedules creation of an admin account on the next
// bootstrap. An existing account with that email is promoted instead.
func RegisterAdminSeed(email, password string, hasher PasswordHasher) {
	if email == "" || password == "" {
		return
	}
	database.RegisterMigration(database.MigrationItem{
		Version:     AdminSeedVersion,
		Name:        "seed_admin_user",
		Description: "Create the initial administrator",
		Up:          seedAdmin(normalizeEmail(email), password, hasher),
	})
}

func seedAdmin(email, password string, hasher PasswordHasher) database.MigrationFunc {
	return func(ctx context.Context, db bun.IDB) error {
		repo := repository.NewRepository[User]()
		existing, err := repo.GetOneOrNone(ctx, db, types.Eq("email", email))
		if err != nil {
			return err
		}
		isAdmin := true
		if existing != nil {
			_, err = repo.Update(ctx, db, types.Eq("id", existing.ID), patchRow{IsAdmin: &isAdmin})
			return err
		}
		hashed, err := hasher.Hash(password)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		_, err = repo.Create(ctx, db, createRow{
			ID:             uuid.New(),
			Email:          email,
			HashedPassword: hashed,
			IsAdmin:        true,
		})
		return err
	}
}
