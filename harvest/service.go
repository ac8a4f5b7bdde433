package harvest

import (
	"context"
	"io"

	"github.com/ElizavetaSytenko/hh-vacancy-parser/service"
	"github.com/hashicorp/go-multierror"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

var _ service.Service = (*Service)(nil)

// Runner is implemented by objects that perform a single harvest.
type Runner interface {
	Run(ctx context.Context) (*Result, error)
}

// ServiceConfig encapsulates the settings for the scheduled harvest Service.
type ServiceConfig struct {
	// Runner is invoked once at start-up and then on every Schedule tick.
	Runner Runner

	// Schedule is a standard cron expression or descriptor such as
	// "@every 6h".
	Schedule string

	Logger *logrus.Entry

	schedule cron.Schedule
}

func (cfg *ServiceConfig) validate() error {
	var err error
	if cfg.Runner == nil {
		err = multierror.Append(err, xerrors.Errorf("harvest runner has not been provided"))
	}
	if cfg.Schedule == "" {
		err = multierror.Append(err, xerrors.Errorf("schedule has not been provided"))
	} else if sched, pErr := cron.ParseStandard(cfg.Schedule); pErr != nil {
		err = multierror.Append(err, xerrors.Errorf("invalid schedule %q: %w", cfg.Schedule, pErr))
	} else {
		cfg.schedule = sched
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		cfg.Logger = logrus.NewEntry(l)
	}
	return err
}

// Service re-runs the harvest on a cron schedule so that the published view
// is refreshed. Runs never overlap; a tick that arrives while a run is still
// in progress is skipped.
type Service struct {
	cfg ServiceConfig
}

// NewService creates a new scheduled harvest service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("harvest service config validation failed: %w", err)
	}
	return &Service{cfg: cfg}, nil
}

// Name implements service.Service
func (svc *Service) Name() string { return "harvester" }

// Run implements service.Service. A failed run is logged and does not stop
// the service.
func (svc *Service) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.PrintfLogger(svc.cfg.Logger)),
	))
	c.Schedule(svc.cfg.schedule, cron.FuncJob(func() { svc.runOnce(ctx) }))

	svc.cfg.Logger.WithField("schedule", svc.cfg.Schedule).Info("starting scheduled harvests")
	svc.runOnce(ctx)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	svc.cfg.Logger.Info("stopped scheduled harvests")
	return nil
}

func (svc *Service) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res, err := svc.cfg.Runner.Run(ctx)
	if err != nil {
		svc.cfg.Logger.WithError(err).Error("harvest run failed")
		return
	}
	svc.cfg.Logger.WithFields(logrus.Fields{
		"run_id":   res.RunID.String(),
		"records":  len(res.Records),
		"complete": res.Complete,
	}).Info("harvest run completed")
}
