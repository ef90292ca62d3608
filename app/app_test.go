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

package app

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/crudgate/config"
	"github.com/tomoncle/crudgate/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return &config.Config{
		Mode:       types.ModeTest,
		AppVersion: "0.0.1",
		JWT: config.JWTConfig{
			AccessSecret:         "access",
			RefreshSecret:        "refresh",
			AccessExpireMinutes:  5,
			RefreshExpireMinutes: 60,
		},
		Admin: config.AdminConfig{Email: "root@example.com", Password: "root-password"},
		Database: config.DatabaseConfig{
			Type:                   "sqlite",
			DBName:                 filepath.Join(t.TempDir(), "app.db"),
			EnableMigrateOnStartup: true,
		},
		HTTP: config.HTTPConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second},
	}
}

func TestNewSeedsAdminAndServesAPI(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	server := httptest.NewServer(a.Handler())
	t.Cleanup(server.Close)
	e := httpexpect.Default(t, server.URL)

	access := e.PATCH("/api/v1/auth/login").
		WithJSON(map[string]string{"email": "root@example.com", "password": "root-password"}).
		Expect().Status(http.StatusOK).
		JSON().Object().Value("access_token").String().Raw()

	e.GET("/api/v1/users").WithHeader("Authorization", "Bearer "+access).
		Expect().Status(http.StatusOK).
		JSON().Object().Value("count").Number().IsEqual(1)

	e.GET("/metrics").Expect().Status(http.StatusOK).
		Body().Contains("crudgate_db_queries_total")
}

func TestNewFailsWithoutSecrets(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWT.AccessSecret = ""
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestServeStopsOnCancel(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/v1/health_check")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
