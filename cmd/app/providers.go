package main

import (
	"log/slog"
	"strings"

	"github.com/yanqian/ml-services/internal/domain/article"
	"github.com/yanqian/ml-services/internal/domain/dispatch"
	"github.com/yanqian/ml-services/internal/domain/ranking"
	"github.com/yanqian/ml-services/internal/domain/summarizer"
	"github.com/yanqian/ml-services/internal/domain/vision"
	"github.com/yanqian/ml-services/internal/infra/config"
	"github.com/yanqian/ml-services/internal/infra/extract"
	"github.com/yanqian/ml-services/internal/infra/fetch"
	"github.com/yanqian/ml-services/internal/infra/imaging"
	"github.com/yanqian/ml-services/internal/infra/llm/chatgpt"
	"github.com/yanqian/ml-services/internal/infra/model/hf"
	"github.com/yanqian/ml-services/internal/infra/ocr/tesseract"
	"github.com/yanqian/ml-services/internal/infra/tokenizer"
	"github.com/yanqian/ml-services/pkg/logger"
	"github.com/yanqian/ml-services/pkg/metrics"
	"github.com/yanqian/ml-services/pkg/workerpool"
)

// dispatchers creates one pool and dispatcher per model and registers it for
// loading and shutdown.
type dispatchers struct {
	registry *dispatch.Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func provideDispatchers(registry *dispatch.Registry, m *metrics.Metrics, logger *slog.Logger) *dispatchers {
	return &dispatchers{registry: registry, metrics: m, logger: logger}
}

func (f *dispatchers) create(name string, model dispatch.Model, workers int) *dispatch.Dispatcher {
	pool := workerpool.New(name, workers, workerpool.WithObserver(f.metrics))
	d := dispatch.New(name, model, pool, f.metrics, f.logger)
	f.registry.Register(d)
	return d
}

func provideMetrics(cfg *config.Config) *metrics.Metrics {
	return metrics.New(metrics.Config{
		Enabled:   cfg.Metrics.Enabled,
		Address:   cfg.Metrics.Address,
		Namespace: cfg.Metrics.Namespace,
		Service:   logger.ServiceName(),
	})
}

func provideInferenceClient(cfg *config.Config) *hf.Client {
	return hf.NewClient(cfg.Inference.APIKey, cfg.Inference.BaseURL, cfg.Inference.Timeout)
}

func provideFetcher(cfg *config.Config, logger *slog.Logger) (*fetch.Client, error) {
	fetchCfg := fetch.Config{
		Timeout:   cfg.Articles.FetchTimeout,
		MaxBytes:  cfg.Articles.MaxBodyBytes,
		UserAgent: cfg.Articles.UserAgent,
	}
	if strings.TrimSpace(cfg.ObjectStore.Endpoint) == "" {
		return fetch.NewClient(fetchCfg, nil, logger), nil
	}
	store, err := fetch.NewObjectStore(fetch.ObjectStoreConfig{
		Endpoint:  cfg.ObjectStore.Endpoint,
		AccessKey: cfg.ObjectStore.AccessKey,
		SecretKey: cfg.ObjectStore.SecretKey,
		Region:    cfg.ObjectStore.Region,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("object store sources enabled", "endpoint", cfg.ObjectStore.Endpoint)
	return fetch.NewClient(fetchCfg, store, logger), nil
}

func provideArticleService(cfg *config.Config, f *dispatchers, fetcher *fetch.Client, logger *slog.Logger) article.Service {
	if !cfg.Services.IsEnabled(config.ServiceArticles) {
		return nil
	}
	extractor := extract.NewHTML()
	d := f.create(config.ServiceArticles, extractor, cfg.Articles.Workers)
	return article.NewService(fetcher, extractor, d, logger)
}

func provideSummarizerService(cfg *config.Config, f *dispatchers, client *hf.Client, logger *slog.Logger) (summarizer.Service, error) {
	if !cfg.Services.IsEnabled(config.ServiceSummarizer) {
		return nil, nil
	}
	tokens, err := tokenizer.New(cfg.Summary.Encoding)
	if err != nil {
		return nil, err
	}

	var model summarizer.Model
	switch cfg.Summary.Backend {
	case config.BackendOpenAI:
		llm, err := chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
		if err != nil {
			return nil, err
		}
		model = chatgpt.NewSummarizer(llm, cfg.LLM.Model)
	default:
		model = hf.NewSummarizer(client, cfg.Summary.Model)
	}

	d := f.create(config.ServiceSummarizer, model, cfg.Summary.Workers)
	return summarizer.NewService(summarizer.Config{
		MaxLength:      cfg.Summary.MaxLength,
		ModelMaxLength: cfg.Summary.ModelMaxLength,
	}, model, tokens, d, logger), nil
}

func provideReranker(cfg *config.Config, f *dispatchers, client *hf.Client, logger *slog.Logger) ranking.Reranker {
	if !cfg.Services.IsEnabled(config.ServiceReranker) {
		return nil
	}
	model := hf.NewCrossEncoder(client, cfg.Ranking.RerankModel)
	d := f.create(config.ServiceReranker, model, cfg.Ranking.Workers)
	return ranking.NewReranker(model, d, logger)
}

func provideClassifier(cfg *config.Config, f *dispatchers, client *hf.Client, logger *slog.Logger) ranking.Classifier {
	if !cfg.Services.IsEnabled(config.ServiceClassifier) {
		return nil
	}
	model := hf.NewZeroShot(client, cfg.Ranking.ClassifyModel)
	d := f.create(config.ServiceClassifier, model, cfg.Ranking.Workers)
	return ranking.NewClassifier(ranking.Config{Threshold: cfg.Ranking.Threshold}, model, d, logger)
}

func provideVisionService(cfg *config.Config, f *dispatchers, client *hf.Client, fetcher *fetch.Client, logger *slog.Logger) vision.Service {
	ocrEnabled := cfg.Services.IsEnabled(config.ServiceOCR)
	captionEnabled := cfg.Services.IsEnabled(config.ServiceCaption)
	if !ocrEnabled && !captionEnabled {
		return nil
	}

	deps := vision.Deps{Source: fetcher, Decoder: imaging.NewDecoder()}
	if ocrEnabled {
		engine := tesseract.NewEngine(cfg.Vision.OCRLanguages)
		deps.OCR = engine
		deps.OCRPool = f.create(config.ServiceOCR, engine, cfg.Vision.Workers)
	}
	if captionEnabled {
		captioner := hf.NewCaptioner(client, cfg.Vision.CaptionModel)
		deps.Captioner = captioner
		deps.CaptionPool = f.create(config.ServiceCaption, captioner, cfg.Vision.Workers)
	}
	return vision.NewService(vision.Config{
		MinConfidence: cfg.Vision.MinConfidence,
		LineTolerance: cfg.Vision.LineTolerance,
	}, deps, logger)
}
