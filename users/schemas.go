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
	"time"

	"github.com/google/uuid"
	"github.com/tomoncle/crudgate/types"
)

// UserView is what any authenticated user may see about an account.
type UserView struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AdminUserView adds the admin flag.
type AdminUserView struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Public drops the admin-only fields.
func (v AdminUserView) Public() UserView {
	return UserView{ID: v.ID, Email: v.Email, CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt}
}

type UserList = types.ListResult[AdminUserView]

type NewUser struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type NewUserByAdmin struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	IsAdmin  bool   `json:"is_admin"`
}

type UserPatch struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=6"`
}

type AdminUserPatch struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=6"`
	IsAdmin  *bool   `json:"is_admin"`
}

// Query holds the admin list filters. Zero values mean "no filter".
type Query struct {
	types.PaginationParams
	ID      *string `form:"id" json:"id" binding:"omitempty,uuid"`
	Email   string  `form:"email" json:"email"`
	IsAdmin *bool   `form:"is_admin" json:"is_admin"`
	Asc     bool    `form:"asc" json:"asc"`
}

// createRow and patchRow are the column sets written to the users table.
type createRow struct {
	ID             uuid.UUID `bun:"id"`
	Email          string    `bun:"email"`
	HashedPassword string    `bun:"hashed_password"`
	IsAdmin        bool      `bun:"is_admin"`
}

type patchRow struct {
	Email          *string `bun:"email"`
	HashedPassword *string `bun:"hashed_password"`
	IsAdmin        *bool   `bun:"is_admin"`
}
