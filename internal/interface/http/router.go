package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/ml-services/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(handler.logger),
	)

	router.GET("/healthz", handler.Healthz)

	api := router.Group("/", authMiddleware(cfg.Auth.Token))
	{
		enabled := cfg.Services.IsEnabled
		if enabled(config.ServiceArticles) {
			api.POST("/articles", handler.Articles)
		}
		if enabled(config.ServiceSummarizer) {
			api.POST("/summarize", handler.Summarize)
		}
		if enabled(config.ServiceReranker) {
			api.POST("/rerank", handler.Rerank)
		}
		if enabled(config.ServiceClassifier) {
			api.POST("/classify", handler.Classify)
		}
		if enabled(config.ServiceOCR) {
			api.POST("/ocr", handler.OCR)
		}
		if enabled(config.ServiceCaption) {
			api.POST("/caption", handler.Caption)
		}
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
