// Package config provides centralized configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults applied when nothing else is configured.
const (
	DefaultPageSize     = 1000
	DefaultKeyProperty  = "topic"
	DefaultBodyProperty = "payload"
)

// Config holds all configuration parameters for the application.
type Config struct {
	Jira    JiraConfig
	Search  SearchConfig
	Get     GetConfig
	Log     LogConfig
	Metrics MetricsConfig
}

// JiraConfig holds the Jira endpoint and credentials.
type JiraConfig struct {
	// URL is the REST root the operation paths are appended to,
	// e.g. "https://jira.example.com/rest/api/2/"
	URL      string
	Username string
	Password string

	InsecureSkipVerify bool
	Timeout            time.Duration
}

// SearchConfig holds search node defaults.
type SearchConfig struct {
	PageSize int
	// JQL, when set, overrides the query carried by inbound messages
	JQL string
}

// GetConfig names the message properties the get node writes.
type GetConfig struct {
	KeyProperty  string
	BodyProperty string
}

// LogConfig holds logging options.
type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig holds the Prometheus endpoint address; empty disables it.
type MetricsConfig struct {
	Addr string
}

// envBindings maps configuration keys to environment variables. The first
// variable listed wins when several are set.
var envBindings = map[string][]string{
	"jira.url":                  {"JIRA_URL"},
	"jira.username":             {"JIRA_USERNAME"},
	"jira.password":             {"JIRA_PASSWORD", "JIRA_TOKEN"},
	"jira.insecure_skip_verify": {"JIRA_INSECURE"},
	"jira.timeout":              {"JIRA_HTTP_TIMEOUT"},
	"search.page_size":          {"JIRA_PAGE_SIZE"},
	"search.jql":                {"JIRA_JQL"},
	"get.key_property":          {"JIRA_GET_KEY_PROPERTY"},
	"get.body_property":         {"JIRA_GET_BODY_PROPERTY"},
	"log.level":                 {"LOG_LEVEL"},
	"log.format":                {"LOG_FORMAT"},
	"metrics.addr":              {"METRICS_ADDR"},
}

// NewViper returns a viper instance bound to the environment and defaults.
// A non-empty configFile is read as well.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	v.SetDefault("search.page_size", DefaultPageSize)
	v.SetDefault("get.key_property", DefaultKeyProperty)
	v.SetDefault("get.body_property", DefaultBodyProperty)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	return v, nil
}

// LoadDotEnv loads variables from .env files into the environment without
// overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load builds the configuration from an already prepared viper instance.
func Load(v *viper.Viper) (*Config, error) {
	config := &Config{
		Jira: JiraConfig{
			URL:                v.GetString("jira.url"),
			Username:           v.GetString("jira.username"),
			Password:           v.GetString("jira.password"),
			InsecureSkipVerify: v.GetBool("jira.insecure_skip_verify"),
			Timeout:            v.GetDuration("jira.timeout"),
		},
		Search: SearchConfig{
			PageSize: v.GetInt("search.page_size"),
			JQL:      v.GetString("search.jql"),
		},
		Get: GetConfig{
			KeyProperty:  v.GetString("get.key_property"),
			BodyProperty: v.GetString("get.body_property"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Metrics: MetricsConfig{
			Addr: v.GetString("metrics.addr"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// validateConfig checks values that are wrong regardless of the command run.
func validateConfig(config *Config) error {
	if config.Search.PageSize <= 0 {
		return fmt.Errorf("search page size must be positive, got %d", config.Search.PageSize)
	}
	if config.Jira.Timeout < 0 {
		return fmt.Errorf("jira timeout must not be negative, got %s", config.Jira.Timeout)
	}
	if config.Get.KeyProperty == "" || config.Get.BodyProperty == "" {
		return errors.New("get key and body properties must not be empty")
	}
	return nil
}

// ValidateJiraConfig validates JIRA-specific configuration.
func ValidateJiraConfig(config *Config) error {
	var missingVars []string

	if config.Jira.URL == "" {
		missingVars = append(missingVars, "JIRA_URL")
	}
	if config.Jira.Username == "" {
		missingVars = append(missingVars, "JIRA_USERNAME")
	}
	if config.Jira.Password == "" {
		missingVars = append(missingVars, "JIRA_PASSWORD")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	return nil
}
