package main

import (
	"context"
	"flag"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ElizavetaSytenko/hh-vacancy-parser/catalog"
	"github.com/ElizavetaSytenko/hh-vacancy-parser/catalog/store/es"
	memcatalog "github.com/ElizavetaSytenko/hh-vacancy-parser/catalog/store/memory"
	"github.com/ElizavetaSytenko/hh-vacancy-parser/config"
	"github.com/ElizavetaSytenko/hh-vacancy-parser/export"
	"github.com/ElizavetaSytenko/hh-vacancy-parser/export/store/cdb"
	"github.com/ElizavetaSytenko/hh-vacancy-parser/fetcher"
	"github.com/ElizavetaSytenko/hh-vacancy-parser/harvest"
	"github.com/ElizavetaSytenko/hh-vacancy-parser/service"
	"github.com/ElizavetaSytenko/hh-vacancy-parser/skills"
	"github.com/ElizavetaSytenko/hh-vacancy-parser/vacancy"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

var (
	appName = "hh-vacancy-parser"
	appSha  = ""
)

func main() {
	rootLogger := logrus.New()
	logger := rootLogger.WithFields(logrus.Fields{
		"app": appName,
		"sha": appSha,
	})

	if err := run(rootLogger, logger); err != nil {
		logger.WithField("err", err).Error("shutting down due to error")
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(rootLogger *logrus.Logger, logger *logrus.Entry) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	rootLogger.SetLevel(level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGHUP, syscall.SIGTERM)
	defer cancel()

	p, closeFn, err := setupPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	if cfg.Schedule == "" {
		res, err := p.Run(ctx)
		if res != nil && !res.Complete {
			logger.Warn("harvest finished with a partial vacancy set")
		}
		return err
	}

	svc, err := harvest.NewService(harvest.ServiceConfig{
		Runner:   p,
		Schedule: cfg.Schedule,
		Logger:   logger.WithField("service", "harvester"),
	})
	if err != nil {
		return err
	}
	return service.ServiceGroup{svc}.Run(ctx)
}

// loadConfig reads the file named by -config and applies the flags that
// were set explicitly on top of it.
func loadConfig() (*config.Config, error) {
	var ov config.Config

	configPath := flag.String("config", "", "Path to a YAML configuration file (defaults are used when empty)")
	flag.StringVar(&ov.LogLevel, "log-level", "", "The log level (debug, info, warn, error)")
	flag.StringVar(&ov.Query.Text, "query", "", "The vacancy search expression")
	flag.StringVar(&ov.Query.Area, "area", "", "The area identifier of the listing service")
	flag.IntVar(&ov.Query.PerPage, "per-page", 0, "The number of vacancies per page (at most 100)")
	flag.IntVar(&ov.Analysis.TopN, "top-n", 0, "The number of skills to rank")
	flag.StringVar(&ov.Export.RecordsPath, "records-path", "", "The CSV file for the vacancy export")
	flag.StringVar(&ov.Export.SkillsPath, "skills-path", "", "The CSV file for the skill ranking")
	flag.StringVar(&ov.Export.DSN, "db-dsn", "", "Also export to a database (supported URIs: postgresql://user@host:26257/hh?sslmode=disable)")
	flag.StringVar(&ov.CatalogURI, "catalog-uri", "", "The URI of the vacancy catalog (supported URIs: in-memory://, es://node1:9200,...,nodeN:9200)")
	flag.StringVar(&ov.Schedule, "schedule", "", "Re-run the harvest on a cron schedule, e.g. '@every 6h' (runs once when empty)")
	flag.Parse()

	cfg, err := config.LoadYAML(*configPath, config.Default)
	if err != nil {
		return nil, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			cfg.LogLevel = ov.LogLevel
		case "query":
			cfg.Query.Text = ov.Query.Text
		case "area":
			cfg.Query.Area = ov.Query.Area
		case "per-page":
			cfg.Query.PerPage = ov.Query.PerPage
		case "top-n":
			cfg.Analysis.TopN = ov.Analysis.TopN
		case "records-path":
			cfg.Export.RecordsPath = ov.Export.RecordsPath
		case "skills-path":
			cfg.Export.SkillsPath = ov.Export.SkillsPath
		case "db-dsn":
			cfg.Export.DSN = ov.Export.DSN
		case "catalog-uri":
			cfg.CatalogURI = ov.CatalogURI
		case "schedule":
			cfg.Schedule = ov.Schedule
		}
	})

	if err = cfg.Validate(); err != nil {
		return nil, xerrors.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func setupPipeline(cfg *config.Config, logger *logrus.Entry) (*harvest.Pipeline, func(), error) {
	var closers []func() error
	closeFn := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.WithError(err).Warn("release resources")
			}
		}
	}

	f, err := fetcher.NewFetcher(fetcher.Config{
		BaseURL:   cfg.Source.BaseURL,
		UserAgent: cfg.Source.UserAgent,
		PageDelay: cfg.Source.PageDelay,
		Client:    &http.Client{Timeout: cfg.Source.Timeout},
		Logger:    logger.WithField("component", "fetcher"),
	})
	if err != nil {
		return nil, closeFn, err
	}

	destinations := []harvest.Destination{{
		Name:    "csv",
		Records: export.NewCSVFile(cfg.Export.RecordsPath),
		Skills:  export.NewCSVFile(cfg.Export.SkillsPath),
	}}
	if cfg.Export.DSN != "" {
		store, err := cdb.NewStore(cfg.Export.DSN)
		if err != nil {
			return nil, closeFn, xerrors.Errorf("export database: %w", err)
		}
		logger.Info("exporting to CDB as well")
		closers = append(closers, store.Close)
		destinations = append(destinations, harvest.Destination{Name: "db", Records: store, Skills: store})
	}

	cat, err := getCatalog(cfg.CatalogURI, logger)
	if err != nil {
		closeFn()
		return nil, func() {}, err
	}
	closers = append(closers, cat.Close)

	p, err := harvest.NewPipeline(harvest.Config{
		Fetcher:      f,
		Extractor:    skills.NewExtractor(cfg.Analysis.Vocabulary...),
		Destinations: destinations,
		Publisher:    cat,
		Query: vacancy.Query{
			Text:    cfg.Query.Text,
			Area:    cfg.Query.Area,
			PerPage: cfg.Query.PerPage,
		},
		TopN:   cfg.Analysis.TopN,
		Logger: logger.WithField("component", "pipeline"),
	})
	if err != nil {
		closeFn()
		return nil, func() {}, err
	}
	return p, closeFn, nil
}

func getCatalog(catalogURI string, logger *logrus.Entry) (catalog.Catalog, error) {
	if catalogURI == "" {
		return nil, xerrors.Errorf("catalog URI must be specified with --catalog-uri")
	}

	uri, err := url.Parse(catalogURI)
	if err != nil {
		return nil, xerrors.Errorf("could not parse catalog URI: %w", err)
	}

	switch uri.Scheme {
	case "in-memory":
		logger.Info("using in-memory catalog")
		return memcatalog.NewInMemoryBleveCatalog()
	case "es":
		nodes := strings.Split(uri.Host, ",")
		for i := 0; i < len(nodes); i++ {
			nodes[i] = "http://" + nodes[i]
		}
		logger.Info("using ES catalog")
		return es.NewESCatalog(nodes)
	default:
		return nil, xerrors.Errorf("unsupported catalog URI scheme: %q", uri.Scheme)
	}
}
