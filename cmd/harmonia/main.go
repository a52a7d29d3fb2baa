// Copyright 2025 harmonia Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	_ "net/http/pprof"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harmonia-fm/harmonia/base/log"
	"github.com/harmonia-fm/harmonia/config"
	"github.com/harmonia-fm/harmonia/logics"
	"github.com/harmonia-fm/harmonia/model/mf"
	"github.com/harmonia-fm/harmonia/server"
	"github.com/harmonia-fm/harmonia/storage/cache"
	"github.com/harmonia-fm/harmonia/storage/data"
	"github.com/harmonia-fm/harmonia/trainer"
)

var rootCommand = &cobra.Command{
	Use:   "harmonia",
	Short: "The harmonia music streaming backend.",
}

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server.",
	Run: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
		conf := loadConfig(cmd)
		if conf.Auth.JWTSecret == "" {
			log.Logger().Fatal("`auth.jwt_secret` must be set in config")
		}

		database, err := data.Open(conf.Database.DataStore, conf.Database.TablePrefix)
		if err != nil {
			log.Logger().Fatal("failed to connect database",
				zap.String("database", log.RedactDBURL(conf.Database.DataStore)), zap.Error(err))
		}
		if err = database.Init(); err != nil {
			log.Logger().Fatal("failed to initialize database", zap.Error(err))
		}
		cacheClient, err := cache.Open(conf.Database.CacheStore)
		if err != nil {
			log.Logger().Fatal("failed to connect cache store", zap.Error(err))
		}

		store := mf.NewStore(conf.Recommend.ModelPath)
		recommender := logics.NewRecommender(store, database, conf.Recommend.ExcludeWindow)
		orchestrator := trainer.NewOrchestrator(conf.Train, conf.Recommend.MetaPath, store, database)
		// serving starts regardless, recommendations degrade to fallbacks
		if err = orchestrator.EnsureTrained(cmd.Context()); err != nil {
			log.Logger().Error("failed to train model at startup", zap.Error(err))
		}

		s := server.NewRestServer(conf, database, cacheClient, recommender, orchestrator)
		s.StartHttpServer()
	},
}

var trainCommand = &cobra.Command{
	Use:   "train",
	Short: "Train the factor model from play history and likes.",
	Run: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
		conf := loadConfig(cmd)

		database, err := data.Open(conf.Database.DataStore, conf.Database.TablePrefix)
		if err != nil {
			log.Logger().Fatal("failed to connect database",
				zap.String("database", log.RedactDBURL(conf.Database.DataStore)), zap.Error(err))
		}
		if err = database.Init(); err != nil {
			log.Logger().Fatal("failed to initialize database", zap.Error(err))
		}
		if err = train(cmd.Context(), conf, database); err != nil {
			log.Logger().Fatal("failed to train model", zap.Error(err))
		}
	},
}

func loadConfig(cmd *cobra.Command) *config.Config {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		return config.GetDefaultConfig()
	}
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		log.Logger().Fatal("failed to load config", zap.String("path", configPath), zap.Error(err))
	}
	log.Logger().Info("load config", zap.String("path", configPath))
	return conf
}

func init() {
	rootCommand.PersistentFlags().StringP("config", "c", "", "path of the config file")
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.AddCommand(serveCommand, trainCommand)
}

func main() {
	defer log.CloseLogger()
	if err := rootCommand.ExecuteContext(context.Background()); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
