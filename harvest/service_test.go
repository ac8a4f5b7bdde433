package harvest_test

import (
	"context"
	"time"

	"github.com/ElizavetaSytenko/hh-vacancy-parser/harvest"
	"github.com/google/uuid"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(ServiceTestSuite))

type ServiceTestSuite struct{}

type runnerFunc func(ctx context.Context) (*harvest.Result, error)

func (f runnerFunc) Run(ctx context.Context) (*harvest.Result, error) { return f(ctx) }

func (s *ServiceTestSuite) TestRunsAtStartupAndStopsOnCancel(c *gc.C) {
	ran := make(chan struct{}, 1)
	runner := runnerFunc(func(context.Context) (*harvest.Result, error) {
		select {
		case ran <- struct{}{}:
		default:
		}
		return &harvest.Result{RunID: uuid.New(), Complete: true}, nil
	})

	svc, err := harvest.NewService(harvest.ServiceConfig{Runner: runner, Schedule: "@every 1h"})
	c.Assert(err, gc.IsNil)
	c.Assert(svc.Name(), gc.Equals, "harvester")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		c.Fatal("timed out waiting for the initial harvest")
	}

	cancel()
	select {
	case err = <-errCh:
		c.Assert(err, gc.IsNil)
	case <-time.After(5 * time.Second):
		c.Fatal("timed out waiting for the service to stop")
	}
}

func (s *ServiceTestSuite) TestFailedRunDoesNotStopService(c *gc.C) {
	ran := make(chan struct{}, 1)
	runner := runnerFunc(func(context.Context) (*harvest.Result, error) {
		ran <- struct{}{}
		return nil, xerrors.New("listing service unavailable")
	})

	svc, err := harvest.NewService(harvest.ServiceConfig{Runner: runner, Schedule: "@every 1h"})
	c.Assert(err, gc.IsNil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Run(ctx) }()
	<-ran

	select {
	case err = <-errCh:
		c.Fatalf("service exited early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	c.Assert(<-errCh, gc.IsNil)
}

func (s *ServiceTestSuite) TestConfigValidation(c *gc.C) {
	_, err := harvest.NewService(harvest.ServiceConfig{})
	c.Assert(err, gc.ErrorMatches, `(?s).*harvest runner has not been provided.*`)
	c.Assert(err, gc.ErrorMatches, `(?s).*schedule has not been provided.*`)

	_, err = harvest.NewService(harvest.ServiceConfig{
		Runner:   runnerFunc(func(context.Context) (*harvest.Result, error) { return nil, nil }),
		Schedule: "every now and then",
	})
	c.Assert(err, gc.ErrorMatches, `(?s).*invalid schedule "every now and then".*`)
}
