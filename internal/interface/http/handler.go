package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/ml-services/internal/domain/article"
	"github.com/yanqian/ml-services/internal/domain/dispatch"
	"github.com/yanqian/ml-services/internal/domain/ranking"
	"github.com/yanqian/ml-services/internal/domain/summarizer"
	"github.com/yanqian/ml-services/internal/domain/vision"
)

// Services holds the domain services of the enabled processors. Services of
// disabled processors are nil and their routes are not mounted.
type Services struct {
	Articles   article.Service
	Summarizer summarizer.Service
	Reranker   ranking.Reranker
	Classifier ranking.Classifier
	Vision     vision.Service
}

// Health reports the lifecycle state of every loaded model.
type Health interface {
	Ready() bool
	States() map[string]string
}

// Handler wires the HTTP transport to domain services.
type Handler struct {
	services Services
	health   Health
	logger   *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(services Services, registry *dispatch.Registry, logger *slog.Logger) *Handler {
	return newHandler(services, registry, logger)
}

func newHandler(services Services, health Health, logger *slog.Logger) *Handler {
	return &Handler{
		services: services,
		health:   health,
		logger:   logger.With("component", "http.handler"),
	}
}

type successResponse struct {
	Status string `json:"status"`
	Result any    `json:"result"`
}

func success(c *gin.Context, result any) {
	c.JSON(http.StatusOK, successResponse{Status: "success", Result: result})
}

// bindAndRun decodes the body into Req, runs fn and writes the envelope.
func bindAndRun[Req, Res any](c *gin.Context, code string, fn func(ctx context.Context, req Req) (Res, error)) {
	var req Req
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, badRequest("invalid_request", err))
		return
	}
	result, err := fn(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, badRequest(code, err))
		return
	}
	success(c, result)
}

// Articles extracts the main text of each URL.
func (h *Handler) Articles(c *gin.Context) {
	bindAndRun(c, "articles_failed", h.services.Articles.Fetch)
}

// Summarize condenses a text of any length.
func (h *Handler) Summarize(c *gin.Context) {
	bindAndRun(c, "summarize_failed", func(ctx context.Context, req summarizer.Request) (string, error) {
		resp, err := h.services.Summarizer.Summarize(ctx, req)
		return resp.Summary, err
	})
}

// Rerank orders queries by relevance to the base passage.
func (h *Handler) Rerank(c *gin.Context) {
	bindAndRun(c, "rerank_failed", h.services.Reranker.Rerank)
}

// Classify assigns zero-shot classes to each query.
func (h *Handler) Classify(c *gin.Context) {
	bindAndRun(c, "classify_failed", h.services.Classifier.Classify)
}

// OCR reads the text lines of an image.
func (h *Handler) OCR(c *gin.Context) {
	bindAndRun(c, "ocr_failed", h.services.Vision.OCR)
}

// Caption describes an image.
func (h *Handler) Caption(c *gin.Context) {
	bindAndRun(c, "caption_failed", h.services.Vision.Caption)
}

// Healthz reports whether every model is loaded.
func (h *Handler) Healthz(c *gin.Context) {
	status, code := "ok", http.StatusOK
	if !h.health.Ready() {
		status, code = "loading", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "models": h.health.States()})
}

