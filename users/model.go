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
	"github.com/tomoncle/crudgate/database"
	"github.com/uptrace/bun"
)

// User is an account. The identifier is generated on create.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID             uuid.UUID `bun:"id,pk,type:varchar(36)" json:"id"`
	Email          string    `bun:"email,notnull,unique" json:"email"`
	HashedPassword string    `bun:"hashed_password,notnull" json:"-"`
	IsAdmin        bool      `bun:"is_admin,notnull,default:false" json:"is_admin"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

func init() {
	database.RegisteredModel(database.NewModelAdapter((*User)(nil), 10))
}
