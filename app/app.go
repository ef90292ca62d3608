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
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/crudgate/auth"
	"github.com/tomoncle/crudgate/config"
	"github.com/tomoncle/crudgate/database"
	"github.com/tomoncle/crudgate/httpapi"
	"github.com/tomoncle/crudgate/metrics"
	"github.com/tomoncle/crudgate/repository"
	"github.com/tomoncle/crudgate/users"
	"github.com/tomoncle/crudgate/utils"
	"go.uber.org/dig"
)

// App owns the opened database and the HTTP server built from a Config.
type App struct {
	cfg    *config.Config
	db     *database.Database
	server *http.Server
	logger *logrus.Logger
}

// NewContainer registers every constructor the server needs.
func NewContainer(cfg *config.Config) (*dig.Container, error) {
	c := dig.New()
	providers := []any{
		func() *config.Config { return cfg },
		newPasswordHasher,
		newTokenProvider,
		openDatabase,
		func() repository.Repository[users.User] { return repository.NewRepository[users.User]() },
		newUserService,
		auth.NewService,
		httpapi.NewRouter,
		newServer,
	}
	for _, p := range providers {
		if err := c.Provide(p); err != nil {
			return nil, fmt.Errorf("provide %T: %w", p, err)
		}
	}
	return c, nil
}

// New configures logging and builds the application graph.
func New(cfg *config.Config) (*App, error) {
	utils.Configure(cfg.Log)
	database.InitLogger(database.NewDefaultLogger("DATABASE"))
	logger := utils.GetOrCreateLogger("APP")

	c, err := NewContainer(cfg)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, logger: logger}
	err = c.Invoke(func(db *database.Database, server *http.Server) {
		a.db = db
		a.server = server
	})
	if err != nil {
		return nil, fmt.Errorf("build application: %w", dig.RootCause(err))
	}
	return a, nil
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.HTTP.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("%s %s listening on %s", a.cfg.Mode.Desc(), a.cfg.AppVersion, ln.Addr())
		errCh <- a.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeoutOrDefault())
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the database pool.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func newPasswordHasher() *auth.PasswordHasher {
	return auth.NewPasswordHasher(0)
}

func newTokenProvider(cfg *config.Config) (*auth.TokenProvider, error) {
	return auth.NewTokenProvider(auth.TokenConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL(),
		RefreshTTL:    cfg.JWT.RefreshTTL(),
		Issuer:        cfg.JWT.Issuer,
	})
}

// openDatabase registers the admin seed before bootstrap runs.
func openDatabase(cfg *config.Config, hasher *auth.PasswordHasher) (*database.Database, error) {
	users.RegisterAdminSeed(cfg.Admin.Email, cfg.Admin.Password, hasher)
	db, err := database.Open(context.Background(), cfg.ConfigLoader())
	if err != nil {
		return nil, err
	}
	db.AddQueryHook(metrics.QueryHook{})
	return db, nil
}

func newUserService(repo repository.Repository[users.User], hasher *auth.PasswordHasher) *users.Service {
	return users.NewService(repo, hasher)
}

func newServer(cfg *config.Config, engine *gin.Engine) *http.Server {
	return &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
}
