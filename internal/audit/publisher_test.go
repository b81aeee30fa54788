package audit

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "intake/pkg/domain"
	"intake/pkg/requestcontext"
)

type recordingStore struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingStore) List(_ context.Context, userID id.UserID) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestEmitSynchronous(t *testing.T) {
	store := &recordingStore{}
	p := NewPublisher(store, slog.New(slog.DiscardHandler))

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-42")

	p.Emit(ctx, Event{
		UserID: "user-1",
		Action: ActionStepCompleted,
		Path:   "/user-details",
	})

	events, err := p.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ActionStepCompleted, events[0].Action)
	assert.Equal(t, now, events[0].Timestamp, "timestamp enriched from the request clock")
	assert.Equal(t, "req-42", events[0].RequestID, "correlation enriched from context")
}

func TestEmitDoesNotOverwriteExplicitFields(t *testing.T) {
	store := &recordingStore{}
	p := NewPublisher(store, slog.New(slog.DiscardHandler))

	stamped := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.Emit(context.Background(), Event{
		UserID:    "user-1",
		Action:    ActionRedirectIssued,
		Timestamp: stamped,
		RequestID: "req-explicit",
	})

	events, err := p.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, stamped, events[0].Timestamp)
	assert.Equal(t, "req-explicit", events[0].RequestID)
}

func TestEmitAsync(t *testing.T) {
	store := &recordingStore{}
	p := NewPublisher(store, slog.New(slog.DiscardHandler), WithAsyncBuffer(16))

	for i := 0; i < 10; i++ {
		p.Emit(context.Background(), Event{
			UserID: "user-1",
			Action: ActionStepCompleted,
		})
	}
	p.Close()

	events, err := p.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, events, 10, "Close drains everything emitted before it")
}

func TestEmitAsyncFullBufferDropsInsteadOfBlocking(t *testing.T) {
	store := &recordingStore{}
	p := NewPublisher(store, slog.New(slog.DiscardHandler), WithAsyncBuffer(1))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			p.Emit(context.Background(), Event{UserID: "user-1", Action: ActionStepCompleted})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}
	p.Close()
}

func TestCloseIsIdempotent(t *testing.T) {
	p := NewPublisher(&recordingStore{}, slog.New(slog.DiscardHandler), WithAsyncBuffer(4))
	p.Close()
	p.Close()
}
