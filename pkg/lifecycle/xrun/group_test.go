package xrun

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Group
// =============================================================================

func TestGroup_Empty(t *testing.T) {
	g, _ := NewGroup(context.Background())
	assert.NoError(t, g.Wait())
}

func TestGroup_ServiceErrorCancelsOthers(t *testing.T) {
	g, ctx := NewGroup(context.Background())
	stopped := make(chan struct{})
	g.Go("waiter", func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	})
	boom := errors.New("boom")
	g.Go("failing", func(context.Context) error { return boom })

	err := g.Wait()
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "failing")
	<-stopped
	assert.Error(t, ctx.Err())
}

func TestGroup_CancelCause(t *testing.T) {
	cause := errors.New("shutdown requested")
	g, _ := NewGroup(context.Background())
	g.Go("svc", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	g.Cancel(cause)
	assert.ErrorIs(t, g.Wait(), cause)
}

func TestGroup_ParentCancelIsClean(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	g, _ := NewGroup(parent)
	g.Go("svc", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	cancel()
	assert.NoError(t, g.Wait())
}

func TestGroup_NilService(t *testing.T) {
	g, _ := NewGroup(context.Background())
	g.Go("nil", nil)
	assert.ErrorIs(t, g.Wait(), ErrNilFunc)
}

func TestGroup_StopHooksRunInReverseOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	hook := func(name string, err error) func(context.Context) error {
		return func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok, "stop hooks are bounded")
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return err
		}
	}

	failed := errors.New("close failed")
	g, _ := NewGroup(context.Background(), WithStopTimeout(time.Second))
	g.OnStop("router", hook("router", nil))
	g.OnStop("workers", hook("workers", failed))
	g.OnStop("skipped", nil)
	g.OnStop("generator", hook("generator", nil))

	err := g.Wait()
	assert.ErrorIs(t, err, failed)
	assert.ErrorContains(t, err, "stop workers")
	assert.Equal(t, []string{"generator", "workers", "router"}, order)
}

func TestGroup_StopHooksAfterServices(t *testing.T) {
	g, _ := NewGroup(context.Background())
	var serviceDone bool
	g.Go("svc", func(context.Context) error {
		time.Sleep(10 * time.Millisecond)
		serviceDone = true
		return nil
	})
	g.OnStop("check", func(context.Context) error {
		assert.True(t, serviceDone)
		return nil
	})
	assert.NoError(t, g.Wait())
}

// =============================================================================
// Run
// =============================================================================

func TestRun_Signal(t *testing.T) {
	sigc := make(chan os.Signal, 1)
	ctx := withTestSigChan(context.Background(), sigc)

	stopped := false
	err := Run(ctx, func(g *Group) error {
		g.OnStop("component", func(context.Context) error {
			stopped = true
			return nil
		})
		sigc <- syscall.SIGTERM
		return nil
	})

	require.ErrorIs(t, err, ErrSignal)
	var sigErr *SignalError
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, syscall.SIGTERM, sigErr.Signal)
	assert.True(t, stopped)
}

func TestRun_SetupError(t *testing.T) {
	setupErr := errors.New("bad config")
	stopped := false
	err := Run(context.Background(), func(g *Group) error {
		g.OnStop("partial", func(context.Context) error {
			stopped = true
			return nil
		})
		return setupErr
	}, WithoutSignalHandler())

	assert.ErrorIs(t, err, setupErr)
	assert.True(t, stopped)
}

func TestRun_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Run(ctx, func(g *Group) error {
		g.Go("svc", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		cancel()
		return nil
	})
	assert.NoError(t, err)
}

func TestSignalError(t *testing.T) {
	err := &SignalError{Signal: syscall.SIGINT}
	assert.ErrorIs(t, err, ErrSignal)
	assert.Contains(t, err.Error(), "interrupt")
	assert.Contains(t, (&SignalError{}).Error(), "<nil>")
	assert.Len(t, DefaultSignals(), 4)
}
