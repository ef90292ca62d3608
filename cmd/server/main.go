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

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomoncle/crudgate/app"
	"github.com/tomoncle/crudgate/config"
	"github.com/tomoncle/crudgate/utils"
)

func main() {
	configPath := flag.String("config", utils.EnvDefaultString("CONFIG_FILE", ""), "optional YAML config file")
	printConfig := flag.Bool("print-config", false, "print the effective configuration and exit")
	flag.Parse()

	if err := run(*configPath, *printConfig); err != nil {
		utils.GetOrCreateLogger("MAIN").WithError(err).Error("server exited")
		os.Exit(1)
	}
}

func run(configPath string, printConfig bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if printConfig {
		out, err := config.Dump(cfg)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	logger := utils.GetOrCreateLogger("MAIN")
	defer func() {
		if err := application.Close(); err != nil {
			logger.WithError(err).Error("failed to close database")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
