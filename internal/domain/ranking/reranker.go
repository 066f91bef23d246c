package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/yanqian/ml-services/internal/domain/dispatch"
	apperrors "github.com/yanqian/ml-services/pkg/errors"
)

// Reranker orders queries by relevance to a passage.
type Reranker interface {
	Rerank(ctx context.Context, req RerankRequest) ([]int, error)
}

type reranker struct {
	model      CrossEncoder
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// NewReranker wires the cross-encoder service. The dispatcher must own model.
func NewReranker(model CrossEncoder, dispatcher *dispatch.Dispatcher, logger *slog.Logger) Reranker {
	return &reranker{
		model:      model,
		dispatcher: dispatcher,
		logger:     logger.With("component", "ranking.reranker"),
	}
}

// Rerank scores every (base passage, query) pair in one model call and
// returns query indices from most to least relevant.
func (r *reranker) Rerank(ctx context.Context, req RerankRequest) ([]int, error) {
	if len(req.Queries) == 0 {
		return []int{}, nil
	}
	pairs := make([]Pair, len(req.Queries))
	for i, q := range req.Queries {
		pairs[i] = Pair{Text: req.BasePassage, TextPair: q}
	}

	start := time.Now()
	scores, err := dispatch.DispatchOne(ctx, r.dispatcher, pairs, r.model.Score)
	if err != nil {
		if apperrors.CodeOf(err) != "" {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeModel, "rerank failed", err)
	}
	if len(scores) != len(pairs) {
		return nil, apperrors.Wrap(apperrors.CodeModel, "rerank failed",
			fmt.Errorf("model returned %d scores for %d pairs", len(scores), len(pairs)))
	}

	order := rankByScore(scores)
	r.logger.Info("queries reranked", "queries", len(pairs), "latency_ms", time.Since(start).Milliseconds())
	return order, nil
}

// rankByScore returns indices sorted by descending score; ties keep input order.
func rankByScore(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	return order
}
