/*
   Runs one harvest: fetch every vacancy page, rank skills, export both
   products to every destination and publish the result to the view.
*/

package harvest

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/ElizavetaSytenko/hh-vacancy-parser/export"
	"github.com/ElizavetaSytenko/hh-vacancy-parser/fetcher"
	"github.com/ElizavetaSytenko/hh-vacancy-parser/skills"
	"github.com/ElizavetaSytenko/hh-vacancy-parser/vacancy"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/ElizavetaSytenko/hh-vacancy-parser/harvest Fetcher,Publisher

// Fetcher is implemented by objects that retrieve the complete result set of
// a query.
type Fetcher interface {
	FetchAll(ctx context.Context, q vacancy.Query) ([]vacancy.Record, error)
}

// Publisher is implemented by views that present the outcome of a run.
type Publisher interface {
	Publish(ctx context.Context, records []vacancy.Record, ranked vacancy.RankedSkillList) error
}

// Destination is a named pair of sinks that receive both products of a run.
type Destination struct {
	Name    string
	Records export.RecordSink
	Skills  export.SkillSink
}

// Config encapsulates the settings for the Pipeline.
type Config struct {
	// Fetcher retrieves the vacancies.
	Fetcher Fetcher

	// Extractor derives skill tokens. Defaults to the default vocabulary.
	Extractor skills.TokenExtractor

	// Destinations receive the exported products. At least one is required.
	Destinations []Destination

	// Publisher is optional.
	Publisher Publisher

	// Query is sent to the listing service on every run.
	Query vacancy.Query

	// TopN bounds the ranking. Defaults to skills.DefaultTopN.
	TopN int

	// Clock stamps each run. Defaults to the wall clock.
	Clock clock.Clock

	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.Fetcher == nil {
		err = multierror.Append(err, xerrors.Errorf("vacancy fetcher has not been provided"))
	}
	if len(cfg.Destinations) == 0 {
		err = multierror.Append(err, xerrors.Errorf("at least one export destination is required"))
	}
	for i, d := range cfg.Destinations {
		if d.Records == nil || d.Skills == nil {
			err = multierror.Append(err, xerrors.Errorf("export destination %d (%q) is missing a sink", i, d.Name))
		}
	}
	if cfg.TopN < 0 {
		err = multierror.Append(err, xerrors.Errorf("top-N must not be negative"))
	} else if cfg.TopN == 0 {
		cfg.TopN = skills.DefaultTopN
	}
	if cfg.Extractor == nil {
		cfg.Extractor = skills.NewExtractor()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		cfg.Logger = logrus.NewEntry(l)
	}
	return err
}

// DestinationResult is the export outcome for one destination.
type DestinationResult struct {
	Name string
	export.WriteResult
}

// Result summarizes a run.
type Result struct {
	RunID   uuid.UUID
	Records []vacancy.Record
	Ranked  vacancy.RankedSkillList

	// Complete is false when fetching stopped early on a transient error;
	// FetchErr then holds the cause.
	Complete bool
	FetchErr error

	Export []DestinationResult
}

// Exported reports whether every destination received both products.
func (r *Result) Exported() bool {
	for _, d := range r.Export {
		if !d.OK() {
			return false
		}
	}
	return true
}

// Pipeline wires a fetcher, the skill analysis and the export destinations
// into a single sequential run.
type Pipeline struct {
	cfg    Config
	writer *export.Writer
}

// NewPipeline returns a new Pipeline instance using the provided config.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("harvest pipeline config validation failed: %w", err)
	}
	return &Pipeline{
		cfg:    cfg,
		writer: export.NewWriter(cfg.Extractor),
	}, nil
}

// Run executes fetch, rank, export and publish in order.
//
// A fatal fetch error aborts the run before anything is exported. A
// transient fetch error does not: the records collected so far are analyzed
// and exported, and the result is marked incomplete. The returned error
// aggregates every export and publish failure; the Result is returned
// whenever the run got past fetching.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	run := export.Run{ID: uuid.New(), At: p.cfg.Clock.Now()}
	logger := p.cfg.Logger.WithField("run_id", run.ID.String())

	res := &Result{RunID: run.ID, Complete: true}
	records, err := p.cfg.Fetcher.FetchAll(ctx, p.cfg.Query)
	if err != nil {
		if !fetcher.IsTransient(err) {
			logger.WithError(err).Error("vacancy fetch failed; nothing will be exported")
			return nil, xerrors.Errorf("fetch: %w", err)
		}
		res.Complete = false
		res.FetchErr = err
	}
	res.Records = records

	fetchLog := logger.WithFields(logrus.Fields{
		"records":  len(records),
		"complete": res.Complete,
	})
	if res.Complete {
		fetchLog.Info("fetched vacancies")
	} else {
		fetchLog.WithError(res.FetchErr).Warn("fetched a partial set of vacancies")
	}

	res.Ranked = skills.Rank(records, p.cfg.Extractor, p.cfg.TopN)
	logger.WithField("top_skills", formatRanking(res.Ranked)).Info("ranked skills")

	var runErr error
	for _, d := range p.cfg.Destinations {
		wr, wErr := p.writer.Write(ctx, run, records, res.Ranked, d.Records, d.Skills)
		res.Export = append(res.Export, DestinationResult{Name: d.Name, WriteResult: wr})
		logSinkStatus(logger.WithField("destination", d.Name), export.SinkRecords, wr.Records)
		logSinkStatus(logger.WithField("destination", d.Name), export.SinkSkills, wr.Skills)
		if wErr != nil {
			runErr = multierror.Append(runErr, xerrors.Errorf("export to %s: %w", d.Name, wErr))
		}
	}

	if p.cfg.Publisher != nil {
		if pErr := p.cfg.Publisher.Publish(ctx, records, res.Ranked); pErr != nil {
			logger.WithError(pErr).Error("publishing run to the catalog failed")
			runErr = multierror.Append(runErr, xerrors.Errorf("publish: %w", pErr))
		} else {
			logger.Debug("published run to the catalog")
		}
	}

	return res, runErr
}

func logSinkStatus(logger *logrus.Entry, sink string, st export.SinkStatus) {
	logger = logger.WithField("sink", sink)
	if !st.OK() {
		logger.WithError(st.Err).Error("export failed")
		return
	}
	logger.WithField("rows", st.Rows).Info("export done")
}

func formatRanking(ranked vacancy.RankedSkillList) string {
	parts := make([]string, len(ranked))
	for i, sc := range ranked {
		parts[i] = sc.Skill + ":" + strconv.Itoa(sc.Count)
	}
	return strings.Join(parts, ", ")
}
