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

// Package server exposes the music backend over a REST-ful API.
package server

import (
	"fmt"
	"net/http"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/harmonia-fm/harmonia/base/log"
	"github.com/harmonia-fm/harmonia/config"
	"github.com/harmonia-fm/harmonia/logics"
	"github.com/harmonia-fm/harmonia/storage/cache"
	"github.com/harmonia-fm/harmonia/storage/data"
	"github.com/harmonia-fm/harmonia/trainer"
)

// RestServer implements a REST-ful API server.
type RestServer struct {
	Config       *config.Config
	DataClient   data.Database
	CacheClient  cache.Database
	Recommender  *logics.Recommender
	Orchestrator *trainer.Orchestrator
	Deezer       *DeezerClient
	Tokens       *TokenManager
	WebService   *restful.WebService
}

// NewRestServer assembles the API server from its collaborators.
func NewRestServer(cfg *config.Config, dataClient data.Database, cacheClient cache.Database,
	recommender *logics.Recommender, orchestrator *trainer.Orchestrator) *RestServer {
	return &RestServer{
		Config:       cfg,
		DataClient:   dataClient,
		CacheClient:  cacheClient,
		Recommender:  recommender,
		Orchestrator: orchestrator,
		Deezer:       NewDeezerClient(cfg.Deezer, cacheClient),
		Tokens:       NewTokenManager(cfg.Auth),
		WebService:   new(restful.WebService),
	}
}

// StartHttpServer starts the REST-ful API server.
func (s *RestServer) StartHttpServer() {
	// register restful APIs
	s.CreateWebService()
	restful.DefaultContainer.Add(s.WebService)
	// register openapi spec
	specConfig := restfulspec.Config{
		WebServices: restful.RegisteredWebServices(),
		APIPath:     "/apidocs.json",
	}
	restful.DefaultContainer.Add(restfulspec.NewOpenAPIService(specConfig))
	// register prometheus
	http.Handle("/metrics", promhttp.Handler())

	log.Logger().Info("start http server",
		zap.String("url", fmt.Sprintf("http://%s:%d", s.Config.Server.Host, s.Config.Server.Port)))
	log.Logger().Fatal("failed to start http server",
		zap.Error(http.ListenAndServe(fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port), nil)))
}
