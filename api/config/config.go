package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port            string
	Env             string
	LogLevel        string
	LogFormat       string
	UploadsDir      string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration

	Translator TranslatorConfig
	Pool       PoolConfig

	RedisAddr    string
	DatabaseURL  string
	KafkaBrokers []string
	KafkaTopic   string
}

type TranslatorConfig struct {
	Command       string
	BaseArgs      []string
	Provider      string
	Language      string
	Languages     []string
	FastModel     string
	StandardModel string
	APIKeyEnv     string
	APIKey        string
}

type PoolConfig struct {
	MaxWorkers int
	QueueSize  int
	JobTimeout time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_port", "8000")
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("uploads_dir", "uploads")
	v.SetDefault("max_upload_bytes", int64(200*1024*1024))
	v.SetDefault("shutdown_timeout", "30s")

	v.SetDefault("translator_command", "python3")
	v.SetDefault("translator_base_args", "-m bbook_maker.make_book")
	v.SetDefault("translator_provider", "openai")
	v.SetDefault("translator_language", "zh-hans")
	v.SetDefault("translator_languages", "zh-hans zh-hant en ja ko fr de")
	v.SetDefault("fast_model", "gpt-3.5-turbo")
	v.SetDefault("standard_model", "gpt-4")
	v.SetDefault("translator_api_key_env", "OPENAI_API_KEY")
	v.SetDefault("openai_api_key", "")

	v.SetDefault("max_workers", 4)
	v.SetDefault("queue_size", 16)
	v.SetDefault("job_timeout", "2h")

	v.SetDefault("redis_addr", "")
	v.SetDefault("database_url", "")
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_topic", "translation_jobs")
}

// Load reads .env, an optional config.yaml and the environment, in
// increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return FromViper(v)
}

func FromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	apiKeyEnv := v.GetString("translator_api_key_env")

	cfg := &Config{
		Port:            v.GetString("service_port"),
		Env:             v.GetString("env"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		UploadsDir:      v.GetString("uploads_dir"),
		MaxUploadBytes:  v.GetInt64("max_upload_bytes"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		Translator: TranslatorConfig{
			Command:       v.GetString("translator_command"),
			BaseArgs:      v.GetStringSlice("translator_base_args"),
			Provider:      v.GetString("translator_provider"),
			Language:      v.GetString("translator_language"),
			Languages:     v.GetStringSlice("translator_languages"),
			FastModel:     v.GetString("fast_model"),
			StandardModel: v.GetString("standard_model"),
			APIKeyEnv:     apiKeyEnv,
			APIKey:        apiKey(v, apiKeyEnv),
		},
		Pool: PoolConfig{
			MaxWorkers: v.GetInt("max_workers"),
			QueueSize:  v.GetInt("queue_size"),
			JobTimeout: v.GetDuration("job_timeout"),
		},
		RedisAddr:    v.GetString("redis_addr"),
		DatabaseURL:  v.GetString("database_url"),
		KafkaBrokers: splitList(v.GetString("kafka_brokers")),
		KafkaTopic:   v.GetString("kafka_topic"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.UploadsDir == "" {
		return errors.New("uploads_dir is required")
	}
	if c.Translator.Command == "" {
		return errors.New("translator_command is required")
	}
	if c.Translator.APIKeyEnv == "" {
		return errors.New("translator_api_key_env is required")
	}
	if c.Translator.FastModel == "" || c.Translator.StandardModel == "" {
		return errors.New("fast_model and standard_model are required")
	}
	if c.Pool.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be at least 1, got %d", c.Pool.MaxWorkers)
	}
	if c.Pool.QueueSize < 0 {
		return fmt.Errorf("queue_size must not be negative, got %d", c.Pool.QueueSize)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if !c.LanguageAllowed(c.Translator.Language) {
		return fmt.Errorf("default language %q is not in translator_languages", c.Translator.Language)
	}
	return nil
}

func (c *Config) LanguageAllowed(lang string) bool {
	for _, l := range c.Translator.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// apiKey reads the key from the variable named by translator_api_key_env,
// falling back to the same name in lower case from the config file.
func apiKey(v *viper.Viper, envName string) string {
	if envName == "" {
		return ""
	}
	if key := os.Getenv(envName); key != "" {
		return key
	}
	return v.GetString(strings.ToLower(envName))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
