package scheduler

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestAddLaneValidation(t *testing.T) {
	s := New(quietLogger())
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.AddLane("inference", time.Minute, time.Second, noop))
	assert.ErrorIs(t, s.AddLane("inference", time.Minute, time.Second, noop), ErrAlreadyExists)
	assert.Error(t, s.AddLane("bad", 0, time.Second, noop))

	require.NoError(t, s.Start(false))
	defer s.Stop()
	assert.ErrorIs(t, s.AddLane("late", time.Minute, time.Second, noop), ErrRunning)
}

func TestStartWithoutLanes(t *testing.T) {
	s := New(quietLogger())
	assert.Error(t, s.Start(false))
	assert.False(t, s.IsRunning())
}

func TestRunNowRecordsStatus(t *testing.T) {
	s := New(quietLogger())
	require.NoError(t, s.AddLane("feature", time.Hour, time.Second, func(context.Context) error { return nil }))
	require.NoError(t, s.AddLane("training", time.Hour, time.Second, func(context.Context) error {
		return errors.New("not enough rows")
	}))

	require.NoError(t, s.RunNow(context.Background(), "feature"))
	assert.EqualError(t, s.RunNow(context.Background(), "training"), "not enough rows")
	assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), ErrUnknownLane)

	status := s.Status()
	require.Len(t, status, 2)
	assert.Equal(t, "feature", status[0].Name)
	assert.Equal(t, int64(1), status[0].Runs)
	assert.Empty(t, status[0].LastError)
	assert.False(t, status[0].LastRun.IsZero())
	assert.Equal(t, "not enough rows", status[1].LastError)
	assert.Equal(t, "1h0m0s", status[1].Interval)
}

func TestRunNowAppliesTimeout(t *testing.T) {
	s := New(quietLogger())
	require.NoError(t, s.AddLane("training", time.Hour, 20*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	err := s.RunNow(context.Background(), "training")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBusyLaneIsSkipped(t *testing.T) {
	s := New(quietLogger())
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, s.AddLane("training", time.Hour, time.Minute, func(context.Context) error {
		close(started)
		<-release
		return nil
	}))

	done := make(chan error, 1)
	go func() { done <- s.RunNow(context.Background(), "training") }()
	<-started

	assert.ErrorIs(t, s.RunNow(context.Background(), "training"), ErrLaneBusy)
	assert.True(t, s.Status()[0].Running)

	close(release)
	require.NoError(t, <-done)

	status := s.Status()[0]
	assert.False(t, status.Running)
	assert.Equal(t, int64(1), status.Runs)
	assert.Equal(t, int64(1), status.Skips)
}

func TestLanesRunIndependently(t *testing.T) {
	s := New(quietLogger())
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, s.AddLane("training", time.Hour, time.Minute, func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	var inference int32
	require.NoError(t, s.AddLane("inference", time.Hour, time.Minute, func(context.Context) error {
		atomic.AddInt32(&inference, 1)
		return nil
	}))

	go func() { _ = s.RunNow(context.Background(), "training") }()
	<-started

	require.NoError(t, s.RunNow(context.Background(), "inference"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&inference))
	close(release)
}

func TestStartRunsLanesOnce(t *testing.T) {
	s := New(quietLogger())
	order := make(chan string, 2)
	require.NoError(t, s.AddLane("feature", time.Hour, time.Second, func(context.Context) error {
		order <- "feature"
		return nil
	}))
	require.NoError(t, s.AddLane("inference", time.Hour, time.Second, func(context.Context) error {
		order <- "inference"
		return nil
	}))

	require.NoError(t, s.Start(true))
	defer s.Stop()
	assert.True(t, s.IsRunning())

	assert.Equal(t, "feature", <-order)
	assert.Equal(t, "inference", <-order)
	assert.False(t, s.Status()[0].NextRun.IsZero())
}

func TestStopIsIdempotent(t *testing.T) {
	s := New(quietLogger())
	require.NoError(t, s.AddLane("feature", time.Hour, time.Second, func(context.Context) error { return nil }))
	require.NoError(t, s.Start(false))

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop())
}
