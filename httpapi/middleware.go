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
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/crudgate/auth"
	"github.com/tomoncle/crudgate/database"
	"github.com/tomoncle/crudgate/types"
	"github.com/tomoncle/crudgate/users"
)

const (
	RequestIDHeader = "X-Request-ID"
	AuthHeader      = "Authorization"

	requestIDKey   = "request_id"
	sessionKey     = "db_session"
	currentUserKey = "current_user"
)

var (
	corsMethods = []string{"GET", "POST", "OPTIONS", "DELETE", "PATCH", "PUT"}
	corsHeaders = []string{
		"Content-Type",
		"Set-Cookie",
		"Access-Control-Allow-Headers",
		"Access-Control-Allow-Origin",
		AuthHeader,
	}
)

// RequestID propagates X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if rid == "" {
			rid = xid.New().String()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Next()
	}
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// AccessLog writes one entry per request.
func AccessLog(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"request_id": GetRequestID(c),
			"client_ip":  c.ClientIP(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency":    time.Since(start).Round(time.Microsecond).String(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request")
		}
	}
}

// Session opens a unit of work for the request and closes it when the
// handler chain returns, rolling back whatever was not committed.
func Session(db *database.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := db.NewSession()
		defer func() { _ = session.Close() }()
		c.Set(sessionKey, session)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) database.UnitOfWork {
	return c.MustGet(sessionKey).(database.UnitOfWork)
}

// CORS allows the configured origins; "*" allows any. It returns nil
// when no origin is configured.
func CORS(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return nil
	}
	cfg := cors.Config{
		AllowMethods:     corsMethods,
		AllowHeaders:     corsHeaders,
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// Recovery turns a panic into the standard 500 body.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.WithField("request_id", GetRequestID(c)).Errorf("panic recovered: %v", recovered)
		abortWithError(c, http.StatusInternalServerError, internalErrorDetail)
	})
}

// RequireUser resolves the bearer token to the current user.
func RequireUser(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader(AuthHeader))
		if !ok {
			respondError(c, &types.UnauthorizedError{Reason: "missing bearer token"})
			c.Abort()
			return
		}
		user, err := authService.Authenticate(c.Request.Context(), sessionFrom(c), token)
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// RequireAdmin must run after RequireUser.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := currentUser(c); user == nil || !user.IsAdmin {
			respondError(c, &types.ForbiddenError{Reason: "admin privileges required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *users.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*users.User)
	return user
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
