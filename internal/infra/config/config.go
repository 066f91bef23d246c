package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Service names accepted in services.enabled.
const (
	ServiceArticles   = "articles"
	ServiceSummarizer = "summarizer"
	ServiceReranker   = "reranker"
	ServiceClassifier = "classifier"
	ServiceOCR        = "ocr"
	ServiceCaption    = "caption"
)

// Summarizer backends.
const (
	BackendHuggingFace = "huggingface"
	BackendOpenAI      = "openai"
)

var knownServices = []string{
	ServiceArticles,
	ServiceSummarizer,
	ServiceReranker,
	ServiceClassifier,
	ServiceOCR,
	ServiceCaption,
}

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Auth        AuthConfig        `yaml:"auth"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Services    ServicesConfig    `yaml:"services"`
	Inference   InferenceConfig   `yaml:"inference"`
	LLM         LLMConfig         `yaml:"llm"`
	ObjectStore ObjectStoreConfig `yaml:"objectStore"`
	Articles    ArticlesConfig    `yaml:"articles"`
	Summary     SummaryConfig     `yaml:"summary"`
	Ranking     RankingConfig     `yaml:"ranking"`
	Vision      VisionConfig      `yaml:"vision"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string        `yaml:"address"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
}

// AuthConfig holds the shared secret expected in the auth-token header.
// An empty token disables the check.
type AuthConfig struct {
	Token string `yaml:"token"`
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Address   string `yaml:"address"`
	Namespace string `yaml:"namespace"`
}

// ServicesConfig selects the processors mounted by this process.
type ServicesConfig struct {
	Enabled []string `yaml:"enabled"`
}

// InferenceConfig points at the model server.
type InferenceConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
}

// LLMConfig contains ChatGPT/OpenAI settings.
type LLMConfig struct {
	APIKey  string        `yaml:"apiKey"`
	BaseURL string        `yaml:"baseUrl"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// ObjectStoreConfig enables s3:// sources. An empty endpoint disables them.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Region    string `yaml:"region"`
}

// ArticlesConfig controls page download and extraction.
type ArticlesConfig struct {
	Workers      int           `yaml:"workers"`
	FetchTimeout time.Duration `yaml:"fetchTimeout"`
	MaxBodyBytes int64         `yaml:"maxBodyBytes"`
	UserAgent    string        `yaml:"userAgent"`
}

// SummaryConfig defines the recursive summarizer.
type SummaryConfig struct {
	Backend        string `yaml:"backend"`
	Model          string `yaml:"model"`
	Encoding       string `yaml:"encoding"`
	MaxLength      int    `yaml:"maxLength"`
	ModelMaxLength int    `yaml:"modelMaxLength"`
	Workers        int    `yaml:"workers"`
}

// RankingConfig covers the reranker and the classifier.
type RankingConfig struct {
	RerankModel   string  `yaml:"rerankModel"`
	ClassifyModel string  `yaml:"classifyModel"`
	Threshold     float64 `yaml:"threshold"`
	Workers       int     `yaml:"workers"`
}

// VisionConfig covers OCR and captioning.
type VisionConfig struct {
	CaptionModel  string   `yaml:"captionModel"`
	OCRLanguages  []string `yaml:"ocrLanguages"`
	MinConfidence float64  `yaml:"minConfidence"`
	LineTolerance int      `yaml:"lineTolerance"`
	Workers       int      `yaml:"workers"`
}

// IsEnabled reports whether a service is selected.
func (c ServicesConfig) IsEnabled(name string) bool {
	for _, s := range c.Enabled {
		if s == name {
			return true
		}
	}
	return false
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v, ok := os.LookupEnv("AUTH_TOKEN"); ok {
		cfg.Auth.Token = v
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Metrics.Address = v
	}
	if v := os.Getenv("SERVICES_ENABLED"); v != "" {
		cfg.Services.Enabled = splitList(v)
	}
	if v := os.Getenv("INFERENCE_BASE_URL"); v != "" {
		cfg.Inference.BaseURL = v
	}
	if v := os.Getenv("INFERENCE_API_KEY"); v != "" {
		cfg.Inference.APIKey = v
	}
	if v := os.Getenv("INFERENCE_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Inference.Timeout = parsed
		}
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("OBJECT_STORE_ENDPOINT"); v != "" {
		cfg.ObjectStore.Endpoint = v
	}
	if v := os.Getenv("OBJECT_STORE_ACCESS_KEY"); v != "" {
		cfg.ObjectStore.AccessKey = v
	}
	if v := os.Getenv("OBJECT_STORE_SECRET_KEY"); v != "" {
		cfg.ObjectStore.SecretKey = v
	}
	if v := os.Getenv("OBJECT_STORE_REGION"); v != "" {
		cfg.ObjectStore.Region = v
	}
	if v := os.Getenv("ARTICLES_WORKERS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Articles.Workers = parsed
		}
	}
	if v := os.Getenv("ARTICLES_FETCH_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Articles.FetchTimeout = parsed
		}
	}
	if v := os.Getenv("SUMMARY_BACKEND"); v != "" {
		cfg.Summary.Backend = v
	}
	if v := os.Getenv("SUMMARY_MODEL"); v != "" {
		cfg.Summary.Model = v
	}
	if v := os.Getenv("SUMMARY_MAX_LENGTH"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Summary.MaxLength = parsed
		}
	}
	if v := os.Getenv("SUMMARY_MODEL_MAX_LENGTH"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Summary.ModelMaxLength = parsed
		}
	}
	if v := os.Getenv("SUMMARY_WORKERS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Summary.Workers = parsed
		}
	}
	if v := os.Getenv("RERANK_MODEL"); v != "" {
		cfg.Ranking.RerankModel = v
	}
	if v := os.Getenv("CLASSIFIER_MODEL"); v != "" {
		cfg.Ranking.ClassifyModel = v
	}
	if v := os.Getenv("CLASSIFIER_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Ranking.Threshold = parsed
		}
	}
	if v := os.Getenv("RANKING_WORKERS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Ranking.Workers = parsed
		}
	}
	if v := os.Getenv("CAPTION_MODEL"); v != "" {
		cfg.Vision.CaptionModel = v
	}
	if v := os.Getenv("OCR_LANGUAGES"); v != "" {
		cfg.Vision.OCRLanguages = splitList(v)
	}
	if v := os.Getenv("OCR_MIN_CONFIDENCE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Vision.MinConfidence = parsed
		}
	}
	if v := os.Getenv("OCR_LINE_TOLERANCE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Vision.LineTolerance = parsed
		}
	}
	if v := os.Getenv("VISION_WORKERS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Vision.Workers = parsed
		}
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Address:   ":9090",
			Namespace: "ml_services",
		},
		Services: ServicesConfig{
			Enabled: append([]string(nil), knownServices...),
		},
		Inference: InferenceConfig{
			Timeout: 2 * time.Minute,
		},
		LLM: LLMConfig{
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		Articles: ArticlesConfig{
			Workers:      4,
			FetchTimeout: 15 * time.Second,
			MaxBodyBytes: 10 << 20,
		},
		Summary: SummaryConfig{
			Backend:        BackendHuggingFace,
			Model:          "facebook/bart-large-cnn",
			Encoding:       "cl100k_base",
			MaxLength:      150,
			ModelMaxLength: 1024,
			Workers:        2,
		},
		Ranking: RankingConfig{
			RerankModel:   "cross-encoder/ms-marco-MiniLM-L-6-v2",
			ClassifyModel: "facebook/bart-large-mnli",
			Threshold:     0.75,
			Workers:       2,
		},
		Vision: VisionConfig{
			CaptionModel:  "Salesforce/blip-image-captioning-large",
			OCRLanguages:  []string{"eng"},
			MinConfidence: 0.8,
			LineTolerance: 10,
			Workers:       5,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return errors.New("metrics.address cannot be empty when metrics are enabled")
	}
	if len(c.Services.Enabled) == 0 {
		return errors.New("services.enabled cannot be empty")
	}
	for _, s := range c.Services.Enabled {
		if !isKnownService(s) {
			return fmt.Errorf("services.enabled: unknown service %q", s)
		}
	}
	if c.Articles.Workers <= 0 || c.Summary.Workers <= 0 || c.Ranking.Workers <= 0 || c.Vision.Workers <= 0 {
		return errors.New("worker counts must be positive")
	}
	if c.Articles.MaxBodyBytes <= 0 {
		return errors.New("articles.maxBodyBytes must be positive")
	}
	if c.Summary.MaxLength <= 0 {
		return errors.New("summary.maxLength must be positive")
	}
	if c.Summary.ModelMaxLength <= c.Summary.MaxLength {
		return errors.New("summary.modelMaxLength must be greater than summary.maxLength")
	}
	switch c.Summary.Backend {
	case BackendHuggingFace:
		if strings.TrimSpace(c.Summary.Model) == "" {
			return errors.New("summary.model cannot be empty")
		}
	case BackendOpenAI:
		if c.Services.IsEnabled(ServiceSummarizer) && strings.TrimSpace(c.LLM.APIKey) == "" {
			return errors.New("llm.apiKey is required for the openai summary backend")
		}
	default:
		return fmt.Errorf("summary.backend must be %q or %q", BackendHuggingFace, BackendOpenAI)
	}
	if c.Ranking.Threshold < 0 || c.Ranking.Threshold > 1 {
		return errors.New("ranking.threshold must be within [0, 1]")
	}
	if c.Vision.MinConfidence < 0 || c.Vision.MinConfidence > 1 {
		return errors.New("vision.minConfidence must be within [0, 1]")
	}
	if c.Vision.LineTolerance < 0 {
		return errors.New("vision.lineTolerance cannot be negative")
	}
	return nil
}

func isKnownService(name string) bool {
	for _, s := range knownServices {
		if s == name {
			return true
		}
	}
	return false
}
