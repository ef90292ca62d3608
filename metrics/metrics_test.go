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

package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
)

func TestHandlerCountsMatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Handler())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", Exposer())

	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("/items/:id", "GET", "204"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequests.WithLabelValues("/items/:id", "GET", "204")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "crudgate_http_requests_total")
}

func TestQueryHookCountsOutcome(t *testing.T) {
	hook := QueryHook{}
	ok := testutil.ToFloat64(DBQueries.WithLabelValues("SELECT", "ok"))
	failed := testutil.ToFloat64(DBQueries.WithLabelValues("INSERT", "error"))

	hook.AfterQuery(context.Background(), &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now()})
	hook.AfterQuery(context.Background(), &bun.QueryEvent{Query: "INSERT INTO t VALUES (1)", StartTime: time.Now(), Err: errors.New("boom")})

	assert.Equal(t, ok+1, testutil.ToFloat64(DBQueries.WithLabelValues("SELECT", "ok")))
	assert.Equal(t, failed+1, testutil.ToFloat64(DBQueries.WithLabelValues("INSERT", "error")))
}
