// Package config loads the publisher configuration from an optional YAML file, .env files
// and the process environment. The resulting Config is built once at start-up and passed
// explicitly to every component.
package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/retry"
)

// StoreKind names a content-store backend.
type StoreKind string

const (
	StoreGitHub StoreKind = "github"
	StoreS3     StoreKind = "s3"
	StoreGit    StoreKind = "git"
	StoreMemory StoreKind = "memory"
)

// Config is the complete process configuration.
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	GitHub  GitHubConfig   `yaml:"github"`
	S3      S3Config       `yaml:"s3"`
	Git     GitConfig      `yaml:"git"`
	Deploy  DeployConfig   `yaml:"deploy"`
	Publish PublishConfig  `yaml:"publish"`
	History HistoryConfig  `yaml:"history"`
	Auth    AuthConfig     `yaml:"auth"`
	Logging LoggingConfig  `yaml:"logging"`
	Targets []TargetConfig `yaml:"targets"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"SITEPUBLISHER_ADDR" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SITEPUBLISHER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SITEPUBLISHER_WRITE_TIMEOUT" env-default:"90s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SITEPUBLISHER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" env:"SITEPUBLISHER_MAX_BODY_BYTES" env-default:"5242880"`
}

// GitHubConfig identifies the repository that holds the site content.
type GitHubConfig struct {
	Token  string `yaml:"token" env:"GITHUB_TOKEN"`
	Repo   string `yaml:"repo" env:"GITHUB_REPO" env-default:"behavioral-health/website"`
	Branch string `yaml:"branch" env:"GITHUB_BRANCH" env-default:"main"`
	APIURL string `yaml:"api_url" env:"GITHUB_API_URL" env-default:"https://api.github.com"`
}

// S3Config configures the S3 content store.
type S3Config struct {
	Bucket          string `yaml:"bucket" env:"S3_BUCKET"`
	Region          string `yaml:"region" env:"AWS_REGION" env-default:"us-east-1"`
	Prefix          string `yaml:"prefix" env:"S3_PREFIX"`
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `yaml:"use_path_style" env:"S3_USE_PATH_STYLE"`
}

// GitConfig configures the local git content store.
type GitConfig struct {
	RepoPath    string `yaml:"repo_path" env:"GIT_REPO_PATH"`
	AuthorName  string `yaml:"author_name" env:"GIT_AUTHOR_NAME" env-default:"Site Publisher"`
	AuthorEmail string `yaml:"author_email" env:"GIT_AUTHOR_EMAIL" env-default:"cms@localhost"`
}

// DeployConfig configures the post-publish deployment trigger and optional notifiers.
type DeployConfig struct {
	BuildHookURL string        `yaml:"build_hook_url" env:"NETLIFY_BUILD_HOOK"`
	Timeout      time.Duration `yaml:"timeout" env:"DEPLOY_TIMEOUT" env-default:"5s"`
	NATS         NATSConfig    `yaml:"nats"`
	Kafka        KafkaConfig   `yaml:"kafka"`
}

// NATSConfig enables JetStream publish notifications when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url" env:"NATS_URL"`
	Subject string `yaml:"subject" env:"NATS_SUBJECT" env-default:"sitepublisher.deploy"`
	Stream  string `yaml:"stream" env:"NATS_STREAM" env-default:"SITEPUBLISHER"`
}

// KafkaConfig enables Kafka publish notifications when Brokers is set.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"sitepublisher.deploy"`
}

// PublishConfig tunes the orchestrator.
type PublishConfig struct {
	StoreTimeout   time.Duration `yaml:"store_timeout" env:"PUBLISH_STORE_TIMEOUT" env-default:"10s"`
	CommitMessage  string        `yaml:"commit_message" env:"PUBLISH_COMMIT_MESSAGE" env-default:"Update site content via CMS"`
	WaitForTrigger bool          `yaml:"wait_for_trigger" env:"PUBLISH_WAIT_FOR_TRIGGER"`
	Concurrency    int           `yaml:"concurrency" env:"PUBLISH_CONCURRENCY" env-default:"4"`
	Retry          RetryConfig   `yaml:"retry"`
}

// RetryConfig is the raw form of retry.Policy.
type RetryConfig struct {
	Mode       string        `yaml:"mode" env:"PUBLISH_RETRY_MODE" env-default:"exponential"`
	Initial    time.Duration `yaml:"initial" env:"PUBLISH_RETRY_INITIAL" env-default:"250ms"`
	Max        time.Duration `yaml:"max" env:"PUBLISH_RETRY_MAX" env-default:"2s"`
	MaxRetries int           `yaml:"max_retries" env:"PUBLISH_MAX_RETRIES" env-default:"2"`
}

// HistoryConfig enables the publish history database when Path is set.
type HistoryConfig struct {
	Path          string        `yaml:"path" env:"HISTORY_DB"`
	Retention     time.Duration `yaml:"retention" env:"HISTORY_RETENTION" env-default:"720h"`
	PruneInterval time.Duration `yaml:"prune_interval" env:"HISTORY_PRUNE_INTERVAL" env-default:"1h"`
}

// AuthConfig enables bearer-token auth on write routes when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"CMS_JWT_SECRET"`
	Issuer    string        `yaml:"issuer" env:"CMS_JWT_ISSUER" env-default:"sitepublisher"`
	Audience  string        `yaml:"audience" env:"CMS_JWT_AUDIENCE" env-default:"cms-editor"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"CMS_JWT_TTL" env-default:"12h"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format LogFormat `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// TargetConfig names one stored copy of the site content.
type TargetConfig struct {
	ID    string    `yaml:"id"`
	Store StoreKind `yaml:"store"`
	Path  string    `yaml:"path"`
}

// DefaultTargets are the primary (source tree) and public (served) copies.
func DefaultTargets() []TargetConfig {
	return []TargetConfig{
		{ID: "primary", Store: StoreGitHub, Path: "src/data/siteContent.json"},
		{ID: "public", Store: StoreGitHub, Path: "public/siteContent.json"},
	}
}

// Load reads configuration. .env files are applied first without overriding the process
// environment; configPath is optional and environment variables take precedence over it.
// Missing credentials are not an error here: they surface when a publish is attempted.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	var cfg Config
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, errors.ConfigError("configuration file not found").
				WithCause(err).
				WithContext("path", configPath).
				Build()
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, errors.ConfigError("failed to read configuration file").
				WithCause(err).
				WithContext("path", configPath).
				Build()
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, errors.ConfigError("failed to read environment").WithCause(err).Build()
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
	if len(c.Targets) == 0 {
		c.Targets = DefaultTargets()
	}
	for i := range c.Targets {
		c.Targets[i].Store = NormalizeStoreKind(string(c.Targets[i].Store))
	}
}

// RetryPolicy converts the retry section into a policy.
func (c *Config) RetryPolicy() retry.Policy {
	r := c.Publish.Retry
	return retry.NewPolicy(retry.Mode(r.Mode), r.Initial, r.Max, r.MaxRetries)
}

// UsesStore reports whether any target is backed by kind.
func (c *Config) UsesStore(kind StoreKind) bool {
	for _, t := range c.Targets {
		if t.Store == kind {
			return true
		}
	}
	return false
}

// Usage renders the environment variable reference for --help output.
func Usage() string {
	var cfg Config
	header := "Environment variables:"
	text, err := cleanenv.GetDescription(&cfg, &header)
	if err != nil {
		return ""
	}
	return text
}
