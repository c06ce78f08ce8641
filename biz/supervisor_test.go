package biz

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearne/lwsniffer/capture"
	"github.com/vearne/lwsniffer/metrics"
)

// scriptedRunner returns errs one by one, then nil.
type scriptedRunner struct {
	errs  []error
	calls int32
}

func (r *scriptedRunner) Run(ctx context.Context) error {
	n := int(atomic.AddInt32(&r.calls, 1)) - 1
	if n < len(r.errs) {
		return r.errs[n]
	}
	return nil
}

type blockingRunner struct {
	calls int32
}

func (r *blockingRunner) Run(ctx context.Context) error {
	atomic.AddInt32(&r.calls, 1)
	<-ctx.Done()
	return nil
}

type panicRunner struct{}

func (panicRunner) Run(ctx context.Context) error {
	panic("boom")
}

func TestSupervisorRestarts(t *testing.T) {
	r := &scriptedRunner{errs: []error{errors.New("e1"), errors.New("e2")}}
	m := metrics.New()
	s := newSupervisor([]capture.Target{eth0}, map[capture.Target]Runner{eth0: r}, 3, time.Millisecond, m)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&r.calls))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Restarts.WithLabelValues("eth0")))
}

func TestSupervisorGivesUp(t *testing.T) {
	boom := errors.New("boom")
	r := &scriptedRunner{errs: []error{boom, boom, boom, boom, boom}}
	s := newSupervisor([]capture.Target{eth0}, map[capture.Target]Runner{eth0: r}, 2, time.Millisecond, metrics.New())

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, int32(3), atomic.LoadInt32(&r.calls))
}

func TestSupervisorIsolatesFailures(t *testing.T) {
	lo := capture.Target{Name: "lo", IP: "127.0.0.1"}
	failing := &scriptedRunner{errs: []error{errors.New("no such device")}}
	healthy := &blockingRunner{}
	s := newSupervisor([]capture.Target{lo, eth0},
		map[capture.Target]Runner{lo: failing, eth0: healthy}, 0, time.Millisecond, metrics.New())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := s.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such device")
	assert.Equal(t, int32(1), atomic.LoadInt32(&failing.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&healthy.calls))
}

func TestSupervisorCancelDuringBackoff(t *testing.T) {
	r := &scriptedRunner{errs: []error{errors.New("e1")}}
	s := newSupervisor([]capture.Target{eth0}, map[capture.Target]Runner{eth0: r}, 3, time.Hour, metrics.New())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	assert.Equal(t, int32(1), atomic.LoadInt32(&r.calls))
}

func TestSupervisorRecoversPanic(t *testing.T) {
	s := newSupervisor([]capture.Target{eth0}, map[capture.Target]Runner{eth0: panicRunner{}}, 0, time.Millisecond, metrics.New())

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked: boom")
}

func TestNewSupervisorBadFilter(t *testing.T) {
	settings := newTestSettings()
	settings.Sniffer.ResourceMatch = "("
	_, err := NewSupervisor(settings, []capture.Target{eth0}, nil, nil, metrics.New())
	assert.Error(t, err)
}
