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
	"strings"

	"github.com/tomoncle/crudgate/repository"
	"github.com/uptrace/bun"
)

type queryComposer struct{}

// BuildListQuery filters by id, email substring and admin flag, newest
// first unless Asc is set. Pagination is left to the caller.
func (queryComposer) BuildListQuery(q Query) repository.QueryComposer {
	return func(sq *bun.SelectQuery) *bun.SelectQuery {
		if q.ID != nil && *q.ID != "" {
			sq = sq.Where("? = ?", bun.Ident("u.id"), *q.ID)
		}
		if email := strings.TrimSpace(q.Email); email != "" {
			sq = sq.Where("LOWER(?) LIKE ?", bun.Ident("u.email"), "%"+strings.ToLower(email)+"%")
		}
		if q.IsAdmin != nil {
			sq = sq.Where("? = ?", bun.Ident("u.is_admin"), *q.IsAdmin)
		}
		if q.Asc {
			sq = sq.OrderExpr("? ASC", bun.Ident("u.created_at"))
		} else {
			sq = sq.OrderExpr("? DESC", bun.Ident("u.created_at"))
		}
		return sq.OrderExpr("? ASC", bun.Ident("u.id"))
	}
}
