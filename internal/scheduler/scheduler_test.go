package scheduler

import (
	"bytes"
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finadvisor/internal/log"
)

func quietLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(&bytes.Buffer{}, nil)})
}

func TestRegister(t *testing.T) {
	s := New(context.Background(), quietLogger())

	require.NoError(t, s.RegisterSweep("cache", "@every 1m", SweepFunc(func() int { return 0 })))
	require.NoError(t, s.RegisterSweep("rate_limit", "", SweepFunc(func() int { return 0 })), "empty spec disables")
	require.NoError(t, s.RegisterStatusReport("*/10 * * * *", func(context.Context) {}))
	assert.Equal(t, 2, s.Jobs())

	err := s.RegisterSweep("cache", "not a spec", SweepFunc(func() int { return 0 }))
	assert.ErrorContains(t, err, "register cache sweep")
	assert.Error(t, s.RegisterStatusReport("61 * * * *", func(context.Context) {}))
}

func TestJobsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New(ctx, quietLogger())

	var sweeps, reports atomic.Int32
	require.NoError(t, s.RegisterSweep("cache", "@every 1s", SweepFunc(func() int {
		sweeps.Add(1)
		return 3
	})))
	require.NoError(t, s.RegisterStatusReport("@every 1s", func(got context.Context) {
		assert.Equal(t, ctx, got)
		reports.Add(1)
	}))

	s.Start()
	assert.Eventually(t, func() bool {
		return sweeps.Load() > 0 && reports.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	s.Stop(stopCtx)
}

func TestPanickingJobIsRecovered(t *testing.T) {
	s := New(context.Background(), quietLogger())

	var after atomic.Int32
	require.NoError(t, s.RegisterSweep("broken", "@every 1s", SweepFunc(func() int { panic("boom") })))
	require.NoError(t, s.RegisterSweep("healthy", "@every 1s", SweepFunc(func() int {
		after.Add(1)
		return 0
	})))

	s.Start()
	assert.Eventually(t, func() bool { return after.Load() >= 2 }, 4*time.Second, 50*time.Millisecond)
	s.Stop(context.Background())
}
