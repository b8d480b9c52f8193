package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garyjia/ops-approval/internal/domain/entity"
	"github.com/garyjia/ops-approval/internal/domain/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) HasInfo(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, info := range m.infos {
		if info == msg {
			return true
		}
	}
	return false
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func submitted(recordID int64) *event.Event {
	return event.NewEvent(event.TypeRecordSubmitted, entity.BusinessTypeReimbursement, recordID, nil)
}

func TestDispatch_CallsHandlersInOrder(t *testing.T) {
	d := NewDispatcher()
	var order []string

	d.SubscribeNamed(event.TypeRecordSubmitted, "first", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "first")
		return nil
	})
	d.SubscribeNamed(event.TypeRecordSubmitted, "second", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "second")
		return nil
	})
	d.Subscribe(event.TypeRecordCompleted, func(ctx context.Context, evt *event.Event) error {
		order = append(order, "other")
		return nil
	})

	require.NoError(t, d.Dispatch(context.Background(), submitted(1)))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatch_StopsOnFirstError(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))
	boom := errors.New("boom")
	secondCalled := false

	d.SubscribeNamed(event.TypeRecordSubmitted, "failing", func(ctx context.Context, evt *event.Event) error {
		return boom
	})
	d.SubscribeNamed(event.TypeRecordSubmitted, "after", func(ctx context.Context, evt *event.Event) error {
		secondCalled = true
		return nil
	})

	err := d.Dispatch(context.Background(), submitted(1))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
	assert.False(t, secondCalled)
	assert.Equal(t, 1, logger.ErrorCount())
}

func TestDispatch_RecoversPanics(t *testing.T) {
	d := NewDispatcher(WithLogger(&mockLogger{}))
	d.Subscribe(event.TypeRecordSubmitted, func(ctx context.Context, evt *event.Event) error {
		panic("handler exploded")
	})

	err := d.Dispatch(context.Background(), submitted(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler exploded")
}

func TestUnsubscribe(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))
	called := false

	d.SubscribeNamed(event.TypeRecordAdvanced, "notify", func(ctx context.Context, evt *event.Event) error {
		called = true
		return nil
	})
	d.Unsubscribe(event.TypeRecordAdvanced, "notify")

	require.NoError(t, d.Dispatch(context.Background(), event.NewEvent(event.TypeRecordAdvanced, entity.BusinessTypeReimbursement, 1, nil)))
	assert.False(t, called)
	assert.Empty(t, d.ListHandlers(event.TypeRecordAdvanced))
	assert.True(t, logger.HasInfo("Handler unregistered"))
}

func TestListHandlers_HidesFuncs(t *testing.T) {
	d := NewDispatcher()
	d.SubscribeNamed(event.TypeRecordCompleted, "asset-outcome", func(ctx context.Context, evt *event.Event) error { return nil })
	d.Subscribe(event.TypeRecordCompleted, func(ctx context.Context, evt *event.Event) error { return nil })

	handlers := d.ListHandlers(event.TypeRecordCompleted)
	require.Len(t, handlers, 2)
	assert.Equal(t, "asset-outcome", handlers[0].Name)
	assert.Equal(t, "approval.completed-handler-1", handlers[1].Name)
	for _, h := range handlers {
		assert.Nil(t, h.Handler)
	}
}

func TestDispatchAsync_SurvivesCallerCancellation(t *testing.T) {
	d := NewDispatcher()
	var got atomic.Value
	done := make(chan struct{})

	d.Subscribe(event.TypeRecordSubmitted, func(ctx context.Context, evt *event.Event) error {
		defer close(done)
		time.Sleep(10 * time.Millisecond)
		got.Store(ctx.Err() == nil)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	d.DispatchAsync(ctx, submitted(7))
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async handler did not run")
	}
	assert.Equal(t, true, got.Load())
	require.NoError(t, d.Close())
}

func TestClose_WaitsForAsyncHandlers(t *testing.T) {
	d := NewDispatcher()
	var finished atomic.Int32

	for i := 0; i < 3; i++ {
		d.Subscribe(event.TypeRecordCompleted, func(ctx context.Context, evt *event.Event) error {
			time.Sleep(5 * time.Millisecond)
			finished.Add(1)
			return nil
		})
	}

	d.DispatchAsync(context.Background(), event.NewEvent(event.TypeRecordCompleted, entity.BusinessTypeAssetRequest, 3, nil))
	require.NoError(t, d.Close())
	assert.Equal(t, int32(3), finished.Load())

	assert.Error(t, d.Close())
	assert.Error(t, d.Dispatch(context.Background(), submitted(1)))
}

func TestDispatchAsync_AfterCloseIsDropped(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))
	called := false
	d.Subscribe(event.TypeRecordSubmitted, func(ctx context.Context, evt *event.Event) error {
		called = true
		return nil
	})
	require.NoError(t, d.Close())

	d.DispatchAsync(context.Background(), submitted(1))
	assert.False(t, called)
	assert.Equal(t, 1, logger.ErrorCount())
}

func TestForBusinessType(t *testing.T) {
	var seen []int64
	h := ForBusinessType(entity.BusinessTypeAssetRequest, func(ctx context.Context, evt *event.Event) error {
		seen = append(seen, evt.RecordID)
		return nil
	})

	require.NoError(t, h(context.Background(), event.NewEvent(event.TypeRecordCompleted, entity.BusinessTypeReimbursement, 1, nil)))
	require.NoError(t, h(context.Background(), event.NewEvent(event.TypeRecordCompleted, entity.BusinessTypeAssetRequest, 2, nil)))
	assert.Equal(t, []int64{2}, seen)
}
