/*
   Process level configuration: built-in defaults overlaid with an optional
   YAML file.
*/

package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// LoadYAML builds a configuration with defaults and overlays the YAML file at
// path on top of it. Keys missing from the file keep their default value;
// unknown keys are rejected. An empty path returns the defaults.
func LoadYAML[T any](path string, defaults func() *T) (*T, error) {
	cfg := defaults()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err = dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, xerrors.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

type Source struct {
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	PageDelay time.Duration `yaml:"page_delay"`
}

type Query struct {
	Text    string `yaml:"text"`
	Area    string `yaml:"area"`
	PerPage int    `yaml:"per_page"`
}

type Analysis struct {
	TopN int `yaml:"top_n"`
	// Vocabulary replaces the built-in skill list when not empty.
	Vocabulary []string `yaml:"vocabulary"`
}

type Export struct {
	RecordsPath string `yaml:"records_path"`
	SkillsPath  string `yaml:"skills_path"`
	// DSN adds a PostgreSQL/CockroachDB destination when set.
	DSN string `yaml:"dsn"`
}

// Config is the configuration of the harvester process.
type Config struct {
	LogLevel string   `yaml:"log_level"`
	Source   Source   `yaml:"source"`
	Query    Query    `yaml:"query"`
	Analysis Analysis `yaml:"analysis"`
	Export   Export   `yaml:"export"`

	// CatalogURI selects the view backend: in-memory:// or
	// es://node1:9200,...,nodeN:9200.
	CatalogURI string `yaml:"catalog_uri"`

	// Schedule re-runs the harvest on a cron schedule. Empty runs once.
	Schedule string `yaml:"schedule"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Source: Source{
			BaseURL:   "https://api.hh.ru/vacancies",
			UserAgent: "api-test-agent",
			Timeout:   30 * time.Second,
			PageDelay: 500 * time.Millisecond,
		},
		Query: Query{
			Text:    "Python OR Java",
			Area:    "1",
			PerPage: 100,
		},
		Analysis: Analysis{
			TopN: 5,
		},
		Export: Export{
			RecordsPath: "vacancies.csv",
			SkillsPath:  "top_skills.csv",
		},
		CatalogURI: "in-memory://",
	}
}

// Load reads the harvester configuration from path.
func Load(path string) (*Config, error) {
	cfg, err := LoadYAML(path, Default)
	if err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, xerrors.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate reports every setting that cannot be used.
func (cfg *Config) Validate() error {
	var err error
	if _, lErr := logrus.ParseLevel(cfg.LogLevel); lErr != nil {
		err = multierror.Append(err, xerrors.Errorf("log_level: %w", lErr))
	}
	if cfg.Source.Timeout <= 0 {
		err = multierror.Append(err, xerrors.Errorf("source.timeout must be positive"))
	}
	if cfg.Source.PageDelay < 0 {
		err = multierror.Append(err, xerrors.Errorf("source.page_delay must not be negative"))
	}
	if cfg.Query.PerPage < 0 {
		err = multierror.Append(err, xerrors.Errorf("query.per_page must not be negative"))
	}
	if cfg.Analysis.TopN < 0 {
		err = multierror.Append(err, xerrors.Errorf("analysis.top_n must not be negative"))
	}
	if cfg.Export.RecordsPath == "" {
		err = multierror.Append(err, xerrors.Errorf("export.records_path must be set"))
	}
	if cfg.Export.SkillsPath == "" {
		err = multierror.Append(err, xerrors.Errorf("export.skills_path must be set"))
	}
	if cfg.Export.RecordsPath != "" && cfg.Export.RecordsPath == cfg.Export.SkillsPath {
		err = multierror.Append(err, xerrors.Errorf("export.records_path and export.skills_path must differ"))
	}
	return err
}
