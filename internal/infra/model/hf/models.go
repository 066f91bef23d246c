package hf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yanqian/ml-services/internal/domain/ranking"
	"github.com/yanqian/ml-services/internal/domain/summarizer"
	"github.com/yanqian/ml-services/internal/domain/vision"
)

// remote is the lifecycle shared by server-hosted models: there are no
// local weights, so loading only checks the wiring.
type remote struct {
	client *Client
	model  string
}

func (r remote) Load(context.Context) error {
	if r.client == nil {
		return errors.New("inference client is not configured")
	}
	if strings.TrimSpace(r.model) == "" {
		return errors.New("inference model cannot be empty")
	}
	return nil
}

func (r remote) Close() error {
	return nil
}

// Summarizer runs a seq2seq summarization model.
type Summarizer struct {
	remote
}

// NewSummarizer binds a summarization model.
func NewSummarizer(client *Client, model string) *Summarizer {
	return &Summarizer{remote{client: client, model: model}}
}

// Summarize generates one summary of at most opts.MaxLength tokens.
func (s *Summarizer) Summarize(ctx context.Context, text string, opts summarizer.GenerateOptions) (string, error) {
	params := map[string]any{"do_sample": opts.DoSample}
	if opts.MaxLength > 0 {
		params["max_length"] = opts.MaxLength
	}
	var out []struct {
		SummaryText string `json:"summary_text"`
	}
	if err := s.client.infer(ctx, s.model, text, params, &out); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", errors.New("summarization returned no output")
	}
	return out[0].SummaryText, nil
}

var _ summarizer.Model = (*Summarizer)(nil)

// ZeroShot runs an NLI model as a multi-label zero-shot classifier.
type ZeroShot struct {
	remote
}

// NewZeroShot binds a zero-shot classification model.
func NewZeroShot(client *Client, model string) *ZeroShot {
	return &ZeroShot{remote{client: client, model: model}}
}

// Classify scores every label independently against sequence.
func (z *ZeroShot) Classify(ctx context.Context, sequence string, labels []string) ([]ranking.LabelScore, error) {
	params := map[string]any{
		"candidate_labels": labels,
		"multi_label":      true,
	}
	var out struct {
		Labels []string  `json:"labels"`
		Scores []float64 `json:"scores"`
	}
	if err := z.client.infer(ctx, z.model, sequence, params, &out); err != nil {
		return nil, err
	}
	if len(out.Labels) != len(out.Scores) {
		return nil, fmt.Errorf("zero-shot returned %d labels and %d scores", len(out.Labels), len(out.Scores))
	}
	scores := make([]ranking.LabelScore, len(out.Labels))
	for i, label := range out.Labels {
		scores[i] = ranking.LabelScore{Label: label, Score: out.Scores[i]}
	}
	return scores, nil
}

var _ ranking.ZeroShotModel = (*ZeroShot)(nil)

// CrossEncoder scores text pairs with a sequence classification head.
type CrossEncoder struct {
	remote
}

// NewCrossEncoder binds a cross-encoder model.
func NewCrossEncoder(client *Client, model string) *CrossEncoder {
	return &CrossEncoder{remote{client: client, model: model}}
}

type textPair struct {
	Text     string `json:"text"`
	TextPair string `json:"text_pair"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Score returns one relevance score per pair, in input order.
func (c *CrossEncoder) Score(ctx context.Context, pairs []ranking.Pair) ([]float64, error) {
	inputs := make([]textPair, len(pairs))
	for i, p := range pairs {
		inputs[i] = textPair{Text: p.Text, TextPair: p.TextPair}
	}
	params := map[string]any{"function_to_apply": "none"}
	var raw []json.RawMessage
	if err := c.client.infer(ctx, c.model, inputs, params, &raw); err != nil {
		return nil, err
	}
	scores := make([]float64, len(raw))
	for i, item := range raw {
		score, err := decodeScore(item)
		if err != nil {
			return nil, fmt.Errorf("decode score %d: %w", i, err)
		}
		scores[i] = score
	}
	return scores, nil
}

// decodeScore accepts either {"label","score"} or the top-k form
// [{"label","score"}, ...], taking the first entry.
func decodeScore(item json.RawMessage) (float64, error) {
	var single labelScore
	if err := json.Unmarshal(item, &single); err == nil {
		return single.Score, nil
	}
	var many []labelScore
	if err := json.Unmarshal(item, &many); err != nil {
		return 0, err
	}
	if len(many) == 0 {
		return 0, errors.New("empty score list")
	}
	return many[0].Score, nil
}

var _ ranking.CrossEncoder = (*CrossEncoder)(nil)

// Captioner runs an image-to-text model.
type Captioner struct {
	remote
}

// NewCaptioner binds an image-to-text model.
func NewCaptioner(client *Client, model string) *Captioner {
	return &Captioner{remote{client: client, model: model}}
}

// Caption returns the generated descriptions of img.
func (c *Captioner) Caption(ctx context.Context, img vision.Image) ([]string, error) {
	contentType := http.DetectContentType(img.Data)
	if img.Format != "" {
		contentType = "image/" + img.Format
	}
	var out []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := c.client.inferBinary(ctx, c.model, contentType, img.Data, &out); err != nil {
		return nil, err
	}
	captions := make([]string, 0, len(out))
	for _, o := range out {
		captions = append(captions, o.GeneratedText)
	}
	return captions, nil
}

var _ vision.CaptionModel = (*Captioner)(nil)
