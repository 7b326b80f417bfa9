package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	SQLite      SQLiteConfig
	Redis       RedisConfig
	OpenRouter  OpenRouterConfig
	Vision      VisionConfig
	Tesseract   TesseractConfig
	Analyzer    AnalyzerConfig
	Recognition RecognitionConfig
	Notify      NotifyConfig
	Webhook     WebhookConfig
	Worker      WorkerConfig
	Logging     LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// OpenRouterConfig holds credentials for the vision-capable LLM provider.
// An empty APIKey removes the provider from the cascade.
type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Referer string
	Title   string
}

// VisionConfig holds credentials for the Google Cloud Vision OCR provider.
// An empty APIKey removes the provider from the cascade.
type VisionConfig struct {
	APIKey   string
	Endpoint string
}

type TesseractConfig struct {
	Languages string
}

type AnalyzerConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type RecognitionConfig struct {
	TimeoutSec    int
	MinTextLength int
	CacheTTLMin   int
}

type NotifyConfig struct {
	WebhookURL string
	Always     bool
	TimeoutSec int
}

type WebhookConfig struct {
	Secret string
}

type WorkerConfig struct {
	QueueSize   int
	Concurrency int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/shopcheck")

	viper.SetEnvPrefix("SHOPCHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 5242880)

	viper.SetDefault("sqlite.path", "./data/shopcheck.db")

	viper.SetDefault("redis.host", "")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("openrouter.baseURL", "https://openrouter.ai/api/v1")
	viper.SetDefault("openrouter.model", "openai/gpt-4o")

	viper.SetDefault("vision.endpoint", "https://vision.googleapis.com/v1/images:annotate")

	viper.SetDefault("tesseract.languages", "eng+fra+deu")

	viper.SetDefault("analyzer.model", "openai/gpt-4o")
	viper.SetDefault("analyzer.temperature", 0.2)
	viper.SetDefault("analyzer.maxTokens", 1024)
	viper.SetDefault("analyzer.timeoutSec", 60)

	viper.SetDefault("recognition.timeoutSec", 30)
	viper.SetDefault("recognition.minTextLength", 3)
	viper.SetDefault("recognition.cacheTTLMin", 60)

	viper.SetDefault("notify.always", false)
	viper.SetDefault("notify.timeoutSec", 10)

	viper.SetDefault("worker.queueSize", 64)
	viper.SetDefault("worker.concurrency", 4)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
