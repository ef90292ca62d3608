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

package httpapi

import (
	"fmt"
	"html"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tomoncle/crudgate/auth"
	"github.com/tomoncle/crudgate/config"
	"github.com/tomoncle/crudgate/database"
	"github.com/tomoncle/crudgate/metrics"
	"github.com/tomoncle/crudgate/types"
	"github.com/tomoncle/crudgate/users"
)

type handlers struct {
	cfg   *config.Config
	db    *database.Database
	users *users.Service
	auth  *auth.Service
}

// HealthCheck is the body of GET /health_check.
type HealthCheck struct {
	Mode     types.Mode             `json:"mode"`
	Version  string                 `json:"version"`
	Status   string                 `json:"status"`
	Dialect  string                 `json:"dialect"`
	Database *database.HealthStatus `json:"database,omitempty"`
	Pool     *database.DBStats      `json:"pool,omitempty"`
}

func (h *handlers) home(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fmt.Sprintf(
		"<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"UTF-8\"><title>crudgate</title></head>"+
			"<body><h1>crudgate %s in %s mode</h1><ul><li><a href=\"/api/v1/health_check\">Health check</a></li>"+
			"<li><a href=\"/metrics\">Metrics</a></li></ul></body></html>",
		html.EscapeString(h.cfg.AppVersion), h.cfg.Mode.Name(),
	)))
}

func (h *handlers) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthCheck{
		Mode:     h.cfg.Mode,
		Version:  h.cfg.AppVersion,
		Status:   "OK",
		Dialect:  h.db.Dialect(),
		Database: h.db.Health(c.Request.Context()),
		Pool:     h.db.Stats(),
	})
}

func (h *handlers) register(c *gin.Context) {
	var in users.NewUser
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	tokens, err := h.auth.Register(c.Request.Context(), sessionFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.TokensIssued.WithLabelValues("register").Inc()
	c.JSON(http.StatusCreated, tokens)
}

func (h *handlers) login(c *gin.Context) {
	var in auth.Credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	tokens, err := h.auth.Login(c.Request.Context(), sessionFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.TokensIssued.WithLabelValues("login").Inc()
	c.JSON(http.StatusOK, tokens)
}

func (h *handlers) refresh(c *gin.Context) {
	var in auth.RefreshRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	tokens, err := h.auth.Refresh(c.Request.Context(), sessionFrom(c), in.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.TokensIssued.WithLabelValues("refresh").Inc()
	c.JSON(http.StatusOK, tokens)
}

func (h *handlers) getMe(c *gin.Context) {
	view, err := h.users.GetByID(c.Request.Context(), sessionFrom(c), currentUser(c).ID.String())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view.Public())
}

func (h *handlers) updateMe(c *gin.Context) {
	var in users.UserPatch
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	view, err := h.users.Update(c.Request.Context(), sessionFrom(c), currentUser(c).ID.String(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view.Public())
}

func (h *handlers) getUser(c *gin.Context) {
	view, err := h.users.GetByID(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view.Public())
}

func (h *handlers) listUsers(c *gin.Context) {
	var q users.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}
	list, err := h.users.GetAll(c.Request.Context(), sessionFrom(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handlers) createUser(c *gin.Context) {
	var in users.NewUserByAdmin
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	view, err := h.users.CreateByAdmin(c.Request.Context(), sessionFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *handlers) updateUser(c *gin.Context) {
	var in users.AdminUserPatch
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	view, err := h.users.UpdateByAdmin(c.Request.Context(), sessionFrom(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) deleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), sessionFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
