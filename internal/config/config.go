package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/shahar-caura/relay/internal/transport"
)

// Duration wraps time.Duration with YAML and TOML unmarshaling from strings like "45s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// Config is the top-level relay configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database" toml:"database"`
	Ollama     OllamaConfig     `yaml:"ollama" toml:"ollama"`
	Classifier ClassifierConfig `yaml:"classifier" toml:"classifier"`
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Notifier   NotifierConfig   `yaml:"notifier" toml:"notifier"`
	Cache      CacheConfig      `yaml:"cache" toml:"cache"`
	NATS       NATSConfig       `yaml:"nats" toml:"nats"`
	Inbox      InboxConfig      `yaml:"inbox" toml:"inbox"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

type OllamaConfig struct {
	API OllamaAPIConfig `yaml:"api" toml:"api"`
}

type OllamaAPIConfig struct {
	URL     string   `yaml:"url" toml:"url"`
	Model   string   `yaml:"model" toml:"model"`
	Timeout Duration `yaml:"timeout" toml:"timeout"`

	// FallbackModels are tried in order when Model is unavailable.
	FallbackModels []string `yaml:"fallback_models" toml:"fallback_models"`
}

// ClassifierConfig controls caller-side behavior around the strict classifier.
type ClassifierConfig struct {
	Lenient bool `yaml:"lenient" toml:"lenient"`
	Retries int  `yaml:"retries" toml:"retries"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

type NotifierConfig struct {
	Provider   string `yaml:"provider" toml:"provider"`
	WebhookURL string `yaml:"webhook_url" toml:"webhook_url"`
}

type CacheConfig struct {
	RedisURL string   `yaml:"redis_url" toml:"redis_url"`
	TTL      Duration `yaml:"ttl" toml:"ttl"`
}

type NATSConfig struct {
	URL     string `yaml:"url" toml:"url"`
	Subject string `yaml:"subject" toml:"subject"`
	Queue   string `yaml:"queue" toml:"queue"`
}

type InboxConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
}

const (
	defaultDatabasePath = ".relay/relay.db"
	defaultTimeout      = 60 * time.Second
	defaultServerAddr   = ":8080"
	defaultCacheTTL     = 10 * time.Minute
	defaultNATSSubject  = "intent.classify"
	defaultNATSQueue    = "relay"
	defaultInboxDir     = "inbox"
)

// Load reads, expands env vars, parses, and validates a relay config file.
// Files ending in .toml are decoded as TOML; everything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Path == "" {
		cfg.Database.Path = defaultDatabasePath
	}
	if cfg.Ollama.API.Timeout.Duration == 0 {
		cfg.Ollama.API.Timeout.Duration = defaultTimeout
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultServerAddr
	}
	if cfg.Cache.TTL.Duration == 0 {
		cfg.Cache.TTL.Duration = defaultCacheTTL
	}
	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = defaultNATSSubject
	}
	if cfg.NATS.Queue == "" {
		cfg.NATS.Queue = defaultNATSQueue
	}
	if cfg.Inbox.Dir == "" {
		cfg.Inbox.Dir = defaultInboxDir
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Ollama.API.URL == "" {
		errs = append(errs, errors.New("ollama.api.url is required"))
	} else if err := transport.ValidateURL(cfg.Ollama.API.URL); err != nil {
		errs = append(errs, fmt.Errorf("ollama.api.url: %w", err))
	}
	if cfg.Ollama.API.Model == "" {
		errs = append(errs, errors.New("ollama.api.model is required"))
	}
	for i, m := range cfg.Ollama.API.FallbackModels {
		if m == "" {
			errs = append(errs, fmt.Errorf("ollama.api.fallback_models[%d] is empty", i))
		}
	}
	if cfg.Ollama.API.Timeout.Duration < 0 {
		errs = append(errs, errors.New("ollama.api.timeout must be positive"))
	}
	if cfg.Classifier.Retries < 0 {
		errs = append(errs, errors.New("classifier.retries must not be negative"))
	}
	if cfg.Cache.TTL.Duration < 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}

	// Only validate notifier fields when provider is set.
	if cfg.Notifier.Provider != "" {
		if cfg.Notifier.Provider != "slack" {
			errs = append(errs, fmt.Errorf("notifier.provider must be \"slack\", got %q", cfg.Notifier.Provider))
		}
		if cfg.Notifier.WebhookURL == "" {
			errs = append(errs, errors.New("notifier.webhook_url is required when notifier.provider is set"))
		}
	}

	return errors.Join(errs...)
}
