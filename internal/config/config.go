// Package config loads migration settings from j2o.yaml and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/steveyegge/j2o/internal/tracker"
)

// Config holds every setting a migration run needs.
type Config struct {
	Jira        JiraConfig        `mapstructure:"jira" yaml:"jira" json:"jira"`
	OpenProject OpenProjectConfig `mapstructure:"openproject" yaml:"openproject" json:"openproject"`
	Migrate     MigrateConfig     `mapstructure:"migrate" yaml:"migrate" json:"migrate"`
	Log         LogConfig         `mapstructure:"log" yaml:"log" json:"log"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" yaml:"-" json:"-"`
}

type JiraConfig struct {
	URL      string `mapstructure:"url" yaml:"url" json:"url"`
	Username string `mapstructure:"username" yaml:"username,omitempty" json:"username,omitempty"`
	APIToken string `mapstructure:"api_token" yaml:"api_token" json:"api_token"`
	Project  string `mapstructure:"project" yaml:"project" json:"project"`
}

type OpenProjectConfig struct {
	URL       string `mapstructure:"url" yaml:"url" json:"url"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key" json:"api_key"`
	ProjectID string `mapstructure:"project_id" yaml:"project_id" json:"project_id"`

	// CorrelationField is the custom field holding the Jira key, e.g. "customField7".
	CorrelationField string `mapstructure:"correlation_field" yaml:"correlation_field" json:"correlation_field"`

	// ActAsHeader enables user impersonation on writes. Empty disables it.
	ActAsHeader string `mapstructure:"act_as_header" yaml:"act_as_header,omitempty" json:"act_as_header,omitempty"`
}

type MigrateConfig struct {
	Incremental  bool   `mapstructure:"incremental" yaml:"incremental" json:"incremental"`
	DryRun       bool   `mapstructure:"dry_run" yaml:"dry_run" json:"dry_run"`
	DefaultActor string `mapstructure:"default_actor" yaml:"default_actor,omitempty" json:"default_actor,omitempty"`
	MappingsFile string `mapstructure:"mappings_file" yaml:"mappings_file,omitempty" json:"mappings_file,omitempty"`
	UsersFile    string `mapstructure:"users_file" yaml:"users_file,omitempty" json:"users_file,omitempty"`

	// UpdatedSince limits the source query. Accepts anything timeparsing understands.
	UpdatedSince string `mapstructure:"updated_since" yaml:"updated_since,omitempty" json:"updated_since,omitempty"`
}

type LogConfig struct {
	File  string `mapstructure:"file" yaml:"file,omitempty" json:"file,omitempty"`
	Level string `mapstructure:"level" yaml:"level" json:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json" json:"json"`
}

// setting describes one key and its environment variables, in lookup order.
// The last variable is the one suggested when a required key is missing.
type setting struct {
	key      string
	env      []string
	required bool
}

var settings = []setting{
	{key: "jira.url", env: []string{"J2O_JIRA_URL", "JIRA_URL"}, required: true},
	{key: "jira.username", env: []string{"J2O_JIRA_USERNAME", "JIRA_USERNAME", "JIRA_EMAIL"}},
	{key: "jira.api_token", env: []string{"J2O_JIRA_API_TOKEN", "JIRA_API_TOKEN"}, required: true},
	{key: "jira.project", env: []string{"J2O_JIRA_PROJECT", "JIRA_PROJECT"}, required: true},
	{key: "openproject.url", env: []string{"J2O_OPENPROJECT_URL", "OPENPROJECT_URL"}, required: true},
	{key: "openproject.api_key", env: []string{"J2O_OPENPROJECT_API_KEY", "OPENPROJECT_API_KEY"}, required: true},
	{key: "openproject.project_id", env: []string{"J2O_OPENPROJECT_PROJECT_ID", "OPENPROJECT_PROJECT"}, required: true},
	{key: "openproject.correlation_field", env: []string{"J2O_OPENPROJECT_CORRELATION_FIELD"}, required: true},
	{key: "openproject.act_as_header", env: []string{"J2O_OPENPROJECT_ACT_AS_HEADER"}},
	{key: "migrate.incremental", env: []string{"J2O_MIGRATE_INCREMENTAL"}},
	{key: "migrate.dry_run", env: []string{"J2O_MIGRATE_DRY_RUN"}},
	{key: "migrate.default_actor", env: []string{"J2O_MIGRATE_DEFAULT_ACTOR"}},
	{key: "migrate.mappings_file", env: []string{"J2O_MIGRATE_MAPPINGS_FILE"}},
	{key: "migrate.users_file", env: []string{"J2O_MIGRATE_USERS_FILE"}},
	{key: "migrate.updated_since", env: []string{"J2O_MIGRATE_UPDATED_SINCE"}},
	{key: "log.file", env: []string{"J2O_LOG_FILE"}},
	{key: "log.level", env: []string{"J2O_LOG_LEVEL"}},
	{key: "log.json", env: []string{"J2O_LOG_JSON"}},
}

// Load reads path, or j2o.yaml from the working directory and the user
// config directory when path is empty, then applies environment overrides.
// A missing default file is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("j2o")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "j2o"))
		}
	}

	v.SetDefault("migrate.incremental", true)
	v.SetDefault("log.level", "info")

	for _, s := range settings {
		if err := v.BindEnv(append([]string{s.key}, s.env...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", s.key, err)
		}
	}
	v.SetEnvPrefix("J2O")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Jira.URL = strings.TrimSuffix(cfg.Jira.URL, "/")
	cfg.OpenProject.URL = strings.TrimSuffix(cfg.OpenProject.URL, "/")
	return &cfg, nil
}

// Validate reports every required setting that is empty.
func (c *Config) Validate() error {
	values := map[string]string{
		"jira.url":                      c.Jira.URL,
		"jira.api_token":                c.Jira.APIToken,
		"jira.project":                  c.Jira.Project,
		"openproject.url":               c.OpenProject.URL,
		"openproject.api_key":           c.OpenProject.APIKey,
		"openproject.project_id":        c.OpenProject.ProjectID,
		"openproject.correlation_field": c.OpenProject.CorrelationField,
	}
	var errs []error
	for _, s := range settings {
		if !s.required || values[s.key] != "" {
			continue
		}
		errs = append(errs, fmt.Errorf("%s not configured\n  set it in j2o.yaml or: export %s=VALUE", s.key, s.env[len(s.env)-1]))
	}
	return errors.Join(errs...)
}

// Options returns the engine options for this configuration.
func (c *Config) Options() tracker.Options {
	return tracker.Options{
		ProjectKey:   c.Jira.Project,
		ProjectID:    c.OpenProject.ProjectID,
		Incremental:  c.Migrate.Incremental,
		DryRun:       c.Migrate.DryRun,
		DefaultActor: c.Migrate.DefaultActor,
	}
}

// Redacted returns a copy with credentials masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Jira.APIToken = mask(c.Jira.APIToken)
	out.OpenProject.APIKey = mask(c.OpenProject.APIKey)
	return &out
}

func mask(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "****"
	default:
		return secret[:4] + "****"
	}
}
