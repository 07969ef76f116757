// Package config loads and validates watcher configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/pagewatch/internal/watcher"
)

// ErrMissingTopic is returned when the ntfy sink is selected without a topic.
var ErrMissingTopic = errors.New("notify.ntfy.topic is required (set NTFY_TOPIC)")

// State store providers.
const (
	StateProviderMemory   = "memory"
	StateProviderLocal    = "local"
	StateProviderRedis    = "redis"
	StateProviderPostgres = "postgres"
	StateProviderGCS      = "gcs"
)

// Notification sinks.
const (
	SinkNtfy   = "ntfy"
	SinkPubSub = "pubsub"
	SinkLog    = "log"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Watch    WatchConfig    `mapstructure:"watch"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	State    StateConfig    `mapstructure:"state"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// WatchConfig describes the watched page.
type WatchConfig struct {
	URL      string           `mapstructure:"url"`
	Keyword  string           `mapstructure:"keyword"`
	ScopeTag string           `mapstructure:"scope_tag"`
	StateKey string           `mapstructure:"state_key"`
	Messages watcher.Messages `mapstructure:"messages"`
}

// HTTPConfig configures the page fetcher.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	RespectRobots  bool   `mapstructure:"respect_robots"`
}

// StateConfig selects and configures the key-value state store.
type StateConfig struct {
	Provider  string         `mapstructure:"provider"`
	Namespace string         `mapstructure:"namespace"`
	Redis     RedisConfig    `mapstructure:"redis"`
	Postgres  PostgresConfig `mapstructure:"postgres"`
	GCS       GCSConfig      `mapstructure:"gcs"`
	Local     LocalConfig    `mapstructure:"local"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PostgresConfig controls the Postgres state table.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// GCSConfig points the state store at a bucket. Endpoint is only set for
// emulators.
type GCSConfig struct {
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Endpoint string `mapstructure:"endpoint"`
}

// LocalConfig stores state as files under BaseDir.
type LocalConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// NotifyConfig selects and configures the notification sink.
type NotifyConfig struct {
	Sink   string       `mapstructure:"sink"`
	Title  string       `mapstructure:"title"`
	Ntfy   NtfyConfig   `mapstructure:"ntfy"`
	PubSub PubSubConfig `mapstructure:"pubsub"`
}

// NtfyConfig holds ntfy push settings.
type NtfyConfig struct {
	Server         string   `mapstructure:"server"`
	Topic          string   `mapstructure:"topic"`
	Priority       string   `mapstructure:"priority"`
	Tags           []string `mapstructure:"tags"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// ScheduleConfig drives the in-process timer used by `pagewatch schedule`.
type ScheduleConfig struct {
	Spec       string `mapstructure:"spec"`
	ListenAddr string `mapstructure:"listen_addr"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// MetricsConfig configures Pushgateway export for one-shot runs.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAGEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("notify.ntfy.topic", "PAGEWATCH_NOTIFY_NTFY_TOPIC", "NTFY_TOPIC"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	msgs := watcher.DefaultMessages()
	v.SetDefault("watch.url", watcher.DefaultURL)
	v.SetDefault("watch.keyword", watcher.DefaultKeyword)
	v.SetDefault("watch.scope_tag", "")
	v.SetDefault("watch.state_key", watcher.DefaultStateKey)
	v.SetDefault("watch.messages.keyword_found", msgs.KeywordFound)
	v.SetDefault("watch.messages.content_changed", msgs.ContentChanged)
	v.SetDefault("watch.messages.unchanged", msgs.Unchanged)
	v.SetDefault("watch.messages.failure", msgs.Failure)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.user_agent", watcher.DefaultUserAgent)
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("state.provider", StateProviderRedis)
	v.SetDefault("state.namespace", "PAGE_STATE")
	v.SetDefault("state.redis.address", "localhost:6379")
	v.SetDefault("state.redis.password", "")
	v.SetDefault("state.redis.db", 0)
	v.SetDefault("state.postgres.dsn", "")
	v.SetDefault("state.postgres.table", "page_state")
	v.SetDefault("state.postgres.max_conns", 2)
	v.SetDefault("state.gcs.bucket", "")
	v.SetDefault("state.gcs.prefix", "pagewatch")
	v.SetDefault("state.gcs.endpoint", "")
	v.SetDefault("state.local.base_dir", "data/state")
	v.SetDefault("notify.sink", SinkNtfy)
	v.SetDefault("notify.title", watcher.DefaultTitle)
	v.SetDefault("notify.ntfy.server", "https://ntfy.sh")
	v.SetDefault("notify.ntfy.topic", "")
	v.SetDefault("notify.ntfy.priority", "")
	v.SetDefault("notify.ntfy.tags", []string{})
	v.SetDefault("notify.ntfy.timeout_seconds", 10)
	v.SetDefault("notify.pubsub.project_id", "")
	v.SetDefault("notify.pubsub.topic_id", "")
	v.SetDefault("schedule.spec", "0 */6 * * *")
	v.SetDefault("schedule.listen_addr", ":8080")
	v.SetDefault("schedule.run_on_start", true)
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "pagewatch")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := validatePageURL(c.Watch.URL); err != nil {
		return err
	}
	if strings.TrimSpace(c.HTTP.UserAgent) == "" {
		return fmt.Errorf("http.user_agent must not be empty")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}

	if err := c.State.validate(); err != nil {
		return err
	}
	return c.Notify.validate()
}

func validatePageURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("watch.url is invalid: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("watch.url must be an absolute http(s) URL, got %q", raw)
	}
	return nil
}

func (s StateConfig) validate() error {
	if strings.TrimSpace(s.Namespace) == "" {
		return fmt.Errorf("state.namespace must not be empty")
	}
	switch s.Provider {
	case StateProviderMemory:
	case StateProviderLocal:
		if strings.TrimSpace(s.Local.BaseDir) == "" {
			return fmt.Errorf("state.local.base_dir must be set when provider is local")
		}
	case StateProviderRedis:
		if s.Redis.Address == "" {
			return fmt.Errorf("state.redis.address must be set when provider is redis")
		}
	case StateProviderPostgres:
		if s.Postgres.DSN == "" {
			return fmt.Errorf("state.postgres.dsn must be set when provider is postgres")
		}
	case StateProviderGCS:
		if s.GCS.Bucket == "" {
			return fmt.Errorf("state.gcs.bucket must be set when provider is gcs")
		}
	default:
		return fmt.Errorf("unknown state.provider %q", s.Provider)
	}
	return nil
}

func (n NotifyConfig) validate() error {
	switch n.Sink {
	case SinkNtfy:
		if strings.TrimSpace(n.Ntfy.Topic) == "" {
			return ErrMissingTopic
		}
		if n.Ntfy.Server == "" {
			return fmt.Errorf("notify.ntfy.server must not be empty")
		}
	case SinkPubSub:
		if n.PubSub.ProjectID == "" || n.PubSub.TopicID == "" {
			return fmt.Errorf("notify.pubsub.project_id and notify.pubsub.topic_id must be set when sink is pubsub")
		}
	case SinkLog:
	default:
		return fmt.Errorf("unknown notify.sink %q", n.Sink)
	}
	return nil
}

// HTTPTimeout converts the fetch timeout to a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// NotifyTimeout converts the ntfy request timeout to a duration.
func (c Config) NotifyTimeout() time.Duration {
	if c.Notify.Ntfy.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Notify.Ntfy.TimeoutSeconds) * time.Second
}

// WatcherConfig maps the loaded settings onto the checker configuration.
func (c Config) WatcherConfig() watcher.Config {
	return watcher.Config{
		URL:       c.Watch.URL,
		Keyword:   c.Watch.Keyword,
		UserAgent: c.HTTP.UserAgent,
		StateKey:  c.Watch.StateKey,
		Title:     c.Notify.Title,
		Messages:  c.Watch.Messages,
	}
}
