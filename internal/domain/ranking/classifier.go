package ranking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/yanqian/ml-services/internal/domain/dispatch"
	apperrors "github.com/yanqian/ml-services/pkg/errors"
)

// Classifier assigns candidate classes to queries.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) ([][]string, error)
}

type classifier struct {
	threshold  float64
	model      ZeroShotModel
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// NewClassifier wires the zero-shot service. The dispatcher must own model.
func NewClassifier(cfg Config, model ZeroShotModel, dispatcher *dispatch.Dispatcher, logger *slog.Logger) Classifier {
	return &classifier{
		threshold:  cfg.Threshold,
		model:      model,
		dispatcher: dispatcher,
		logger:     logger.With("component", "ranking.classifier"),
	}
}

// Classify returns, for each query, the classes scoring at least the
// threshold, in the order the model reports them.
func (c *classifier) Classify(ctx context.Context, req ClassifyRequest) ([][]string, error) {
	if len(req.Queries) == 0 {
		return [][]string{}, nil
	}
	classes := make([]string, 0, len(req.Classes))
	for _, class := range req.Classes {
		if class = strings.TrimSpace(class); class != "" {
			classes = append(classes, class)
		}
	}
	if len(classes) == 0 {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "classes cannot be empty", nil)
	}

	start := time.Now()
	out, err := dispatch.DispatchMany(ctx, c.dispatcher, req.Queries, dispatch.Work[string, string, []string]{
		Infer: func(ctx context.Context, query string) ([]string, error) {
			scores, err := c.model.Classify(ctx, query, classes)
			if err != nil {
				return nil, err
			}
			return c.accepted(scores), nil
		},
	})
	if err != nil {
		if apperrors.CodeOf(err) != "" {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeModel, "classification failed", err)
	}

	result := make([][]string, len(out))
	for i, o := range out {
		result[i] = o.Value
	}
	c.logger.Info("queries classified", "queries", len(req.Queries), "classes", len(classes), "latency_ms", time.Since(start).Milliseconds())
	return result, nil
}

func (c *classifier) accepted(scores []LabelScore) []string {
	labels := make([]string, 0, len(scores))
	for _, s := range scores {
		if s.Score >= c.threshold {
			labels = append(labels, s.Label)
		}
	}
	return labels
}
