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
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tomoncle/crudgate/auth"
	"github.com/tomoncle/crudgate/config"
	"github.com/tomoncle/crudgate/database"
	"github.com/tomoncle/crudgate/metrics"
	"github.com/tomoncle/crudgate/types"
	"github.com/tomoncle/crudgate/users"
	"github.com/tomoncle/crudgate/utils"
)

// NewRouter builds the gin engine with every route under /api/v1.
func NewRouter(cfg *config.Config, db *database.Database, userService *users.Service, authService *auth.Service) *gin.Engine {
	if cfg.Mode == types.ModeProd {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := utils.GetOrCreateLogger("HTTP")

	r := gin.New()
	r.Use(RequestID(), AccessLog(logger), Recovery(logger), metrics.Handler())
	if mw := CORS(cfg.CORSOrigins); mw != nil {
		r.Use(mw)
	}
	if err := r.SetTrustedProxies(nil); err != nil {
		logger.WithError(err).Warn("failed to reset trusted proxies")
	}
	r.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, "route not found")
	})

	h := &handlers{cfg: cfg, db: db, users: userService, auth: authService}

	r.GET("/", h.home)
	r.GET("/metrics", metrics.Exposer())

	api := r.Group("/api/v1")
	api.GET("/health_check", h.healthCheck)

	withSession := api.Group("", Session(db))

	authGroup := withSession.Group("/auth")
	authGroup.POST("/register", h.register)
	authGroup.PATCH("/login", h.login)
	authGroup.PATCH("/refresh", h.refresh)

	usersGroup := withSession.Group("/users", RequireUser(authService))
	usersGroup.GET("/me", h.getMe)
	usersGroup.PATCH("/me", h.updateMe)
	usersGroup.GET("/:id", h.getUser)

	admin := usersGroup.Group("", RequireAdmin())
	admin.GET("", h.listUsers)
	admin.POST("", h.createUser)
	admin.PUT("/:id", h.updateUser)
	admin.DELETE("/:id", h.deleteUser)

	return r
}
