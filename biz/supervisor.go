package biz

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	"github.com/vearne/lwsniffer/capture"
	"github.com/vearne/lwsniffer/config"
	"github.com/vearne/lwsniffer/decode"
	"github.com/vearne/lwsniffer/metrics"
	slog "github.com/vearne/simplelog"
)

// Runner is a unit of work restarted by the Supervisor when it fails.
type Runner interface {
	Run(ctx context.Context) error
}

type result struct {
	target capture.Target
	err    error
}

// Supervisor runs one Runner per target. A failing runner is restarted
// up to restartMax times; a failure never stops the other targets.
type Supervisor struct {
	targets []capture.Target
	runners map[capture.Target]Runner

	restartMax     int
	restartBackoff time.Duration
	metrics        *metrics.Metrics
}

// NewSupervisor builds a Worker for every target. Workers share the decoder,
// the filter chain and the mirror outputs.
func NewSupervisor(settings *config.AppSettings, targets []capture.Target, open SourceOpener,
	mirrors []PluginWriter, m *metrics.Metrics) (*Supervisor, error) {
	decoder := decode.NewDecoder(settings.Sniffer.Ports, settings.Sniffer.LinkedKey, settings.Identity())
	filterChain, err := NewFilterChain(settings)
	if err != nil {
		return nil, err
	}

	runners := make(map[capture.Target]Runner, len(targets))
	for _, t := range targets {
		runners[t] = NewWorker(t, settings, open, decoder, filterChain, mirrors, m)
	}
	return newSupervisor(targets, runners, settings.Sniffer.RestartMax,
		settings.Sniffer.RestartBackoff, m), nil
}

func newSupervisor(targets []capture.Target, runners map[capture.Target]Runner,
	restartMax int, restartBackoff time.Duration, m *metrics.Metrics) *Supervisor {
	return &Supervisor{
		targets:        targets,
		runners:        runners,
		restartMax:     restartMax,
		restartBackoff: restartBackoff,
		metrics:        m,
	}
}

// Run blocks until every runner has stopped for good and returns the
// errors of the runners that gave up.
func (s *Supervisor) Run(ctx context.Context) error {
	results := make(chan result, len(s.targets))
	attempts := make(map[capture.Target]int, len(s.targets))
	delays := make(map[capture.Target]*backoff.Backoff, len(s.targets))

	for _, t := range s.targets {
		delays[t] = &backoff.Backoff{
			Min:    s.restartBackoff,
			Max:    s.restartBackoff * 30,
			Factor: 2,
		}
		s.start(ctx, t, 0, results)
	}

	var merr *multierror.Error
	running := len(s.targets)
	for running > 0 {
		r := <-results
		running--

		if r.err == nil {
			slog.Info("capture on %v stopped", r.target)
			continue
		}
		if ctx.Err() != nil || attempts[r.target] >= s.restartMax {
			slog.Error("capture on %v failed, giving up:%v", r.target, r.err)
			merr = multierror.Append(merr, r.err)
			continue
		}

		attempts[r.target]++
		s.metrics.Restarts.WithLabelValues(r.target.Name).Inc()
		delay := delays[r.target].Duration()
		slog.Warn("capture on %v failed:%v, restart %d/%d in %v",
			r.target, r.err, attempts[r.target], s.restartMax, delay)
		s.start(ctx, r.target, delay, results)
		running++
	}
	return merr.ErrorOrNil()
}

func (s *Supervisor) start(ctx context.Context, t capture.Target, delay time.Duration, results chan<- result) {
	runner := s.runners[t]
	go func() {
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				results <- result{target: t}
				return
			case <-timer.C:
			}
		}
		results <- result{target: t, err: s.safeRun(ctx, t, runner)}
	}()
}

// safeRun turns a panic inside a runner into an error so that one broken
// interface cannot bring the process down.
func (s *Supervisor) safeRun(ctx context.Context, t capture.Target, runner Runner) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("capture on %v panicked: %v", t, r)
		}
	}()
	return runner.Run(ctx)
}
