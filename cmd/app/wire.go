//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/ml-services/internal/bootstrap"
	"github.com/yanqian/ml-services/internal/domain/dispatch"
	"github.com/yanqian/ml-services/internal/infra/config"
	httpiface "github.com/yanqian/ml-services/internal/interface/http"
	"github.com/yanqian/ml-services/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideMetrics,
		dispatch.NewRegistry,
		provideDispatchers,
		provideInferenceClient,
		provideFetcher,
		provideArticleService,
		provideSummarizerService,
		provideReranker,
		provideClassifier,
		provideVisionService,
		wire.Struct(new(httpiface.Services), "*"),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
