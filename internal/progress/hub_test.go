package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleEvent(stage Stage) Event {
	return Event{
		RunID:  NewRunID(),
		SiteID: "site-1",
		TS:     time.Now().UTC(),
		Stage:  stage,
		URL:    "https://example.com/",
		Reason: "skipped",
	}
}

// TestHubBatchBySize verifies the hub flushes once the batch limit is reached.
func TestHubBatchBySize(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Options{
		BufferSize:   8,
		MaxBatch:     2,
		MaxBatchWait: time.Minute,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	evt := sampleEvent(StageSessionStart)
	hub.Emit(evt)
	hub.Emit(evt)
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1 && len(sink.Batches()[0]) == 2
	}, time.Second, 10*time.Millisecond)
}

// TestHubBatchByTimer verifies the timed flush kicks in for small batches.
func TestHubBatchByTimer(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Options{
		BufferSize:   4,
		MaxBatch:     10,
		MaxBatchWait: 25 * time.Millisecond,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent(StageSessionStart))
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1
	}, time.Second, 5*time.Millisecond)
}

// TestHubEmitNonBlocking asserts Emit never blocks even without consumers.
func TestHubEmitNonBlocking(t *testing.T) {
	t.Parallel()

	hub := &Hub{
		events: make(chan Event),
		logger: zap.NewNop(),
	}
	start := time.Now()
	hub.Emit(sampleEvent(StageSessionStart))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

// TestHubFlushOnClose ensures Close drains buffered events before returning.
func TestHubFlushOnClose(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Options{
		BufferSize:   16,
		MaxBatch:     100,
		MaxBatchWait: time.Minute,
	}, sink)

	for range 5 {
		hub.Emit(sampleEvent(StagePageDone))
	}
	require.NoError(t, hub.Close(context.Background()))
	require.Equal(t, 5, sink.Total())
	require.True(t, sink.Closed())
}

// TestHubEmitAfterCloseIsIgnored verifies post-shutdown emits are dropped.
func TestHubEmitAfterCloseIsIgnored(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Options{BufferSize: 4}, sink)
	require.NoError(t, hub.Close(context.Background()))

	hub.Emit(sampleEvent(StagePageDone))
	require.Equal(t, 0, sink.Total())
}

// TestHubDiscardsInvalidEvents verifies validation gates the buffer.
func TestHubDiscardsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Options{BufferSize: 4, MaxBatch: 1}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(Event{Stage: StagePageDone})
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0, sink.Total())
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	valid := sampleEvent(StagePageDone)
	require.NoError(t, valid.Validate())

	cases := map[string]func(Event) Event{
		"missing run id":  func(e Event) Event { e.RunID = [16]byte{}; return e },
		"missing site id": func(e Event) Event { e.SiteID = ""; return e },
		"zero timestamp":  func(e Event) Event { e.TS = time.Time{}; return e },
		"unknown stage":   func(e Event) Event { e.Stage = "NOPE"; return e },
		"page done no url": func(e Event) Event {
			e.Stage = StagePageDone
			e.URL = ""
			return e
		},
		"page skip no reason": func(e Event) Event {
			e.Stage = StagePageSkip
			e.Reason = ""
			return e
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			require.Error(t, mutate(valid).Validate())
		})
	}
}

type stubSink struct {
	mu      sync.Mutex
	batches [][]Event
	closed  bool
}

func newStubSink() *stubSink {
	return &stubSink{}
}

func (s *stubSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]Event(nil), batch...))
	return nil
}

func (s *stubSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubSink) Batches() [][]Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]Event, len(s.batches))
	copy(out, s.batches)
	return out
}

func (s *stubSink) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func (s *stubSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
