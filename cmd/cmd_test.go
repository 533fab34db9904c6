package cmd

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockPanelService struct {
	started   int32
	closed    int32
	StartFunc func() error
}

func (m *mockPanelService) Start() error {
	atomic.AddInt32(&m.started, 1)
	if m.StartFunc != nil {
		return m.StartFunc()
	}
	return nil
}

func (m *mockPanelService) Close() {
	atomic.AddInt32(&m.closed, 1)
}

type mockHARunner struct {
	RunFunc func(ctx context.Context) error
}

func (m *mockHARunner) Run(ctx context.Context) error {
	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestSuperviseStopsOnContextCancel(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	errorChan := make(chan error, 16)
	services := []panelService{&mockPanelService{}, &mockPanelService{}}

	done := make(chan error, 1)
	go func() {
		done <- supervise(ctx, services, &mockHARunner{}, nil, errorChan, logger)
	}()

	// async service errors are drained, not fatal
	errorChan <- assert.AnError
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("supervise did not stop after cancel")
	}

	for _, svc := range services {
		mock := svc.(*mockPanelService)
		assert.Equal(t, int32(1), atomic.LoadInt32(&mock.started))
		assert.Equal(t, int32(1), atomic.LoadInt32(&mock.closed))
	}
}

func TestSuperviseReturnsStartError(t *testing.T) {
	logger := zaptest.NewLogger(t)
	first := &mockPanelService{}
	failing := &mockPanelService{StartFunc: func() error { return assert.AnError }}

	err := supervise(context.Background(), []panelService{first, failing}, &mockHARunner{}, nil, make(chan error, 1), logger)
	require.ErrorIs(t, err, assert.AnError)

	// the already-started service is still torn down
	assert.Equal(t, int32(1), atomic.LoadInt32(&first.closed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&failing.closed))
}

func TestSuperviseStopsWhenHostClientFails(t *testing.T) {
	logger := zaptest.NewLogger(t)
	runner := &mockHARunner{RunFunc: func(ctx context.Context) error { return assert.AnError }}

	done := make(chan error, 1)
	go func() {
		done <- supervise(context.Background(), nil, runner, nil, make(chan error, 1), logger)
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, assert.AnError)
	case <-time.After(2 * time.Second):
		t.Fatal("supervise did not propagate the runner error")
	}
}
