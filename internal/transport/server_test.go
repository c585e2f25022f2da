package transport

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/grez-lucas/event-locator/internal/scraper/locate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeLocator reports a category click and a terminal event, optionally
// blocking until released.
type fakeLocator struct {
	release chan struct{}
	started chan struct{}

	mu      sync.Mutex
	queries []locate.Query
}

func (f *fakeLocator) Locate(ctx context.Context, q locate.Query, rep locate.Reporter) (*locate.Outcome, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}

	_ = rep.Report(ctx, locate.Event{Type: locate.EventCategoryClickSuccess, Category: locate.CategoryToday})
	_ = rep.Report(ctx, locate.Event{Type: locate.EventMatchFound, Category: locate.CategoryToday, Team1: q.Team1, Team2: q.Team2})
	return &locate.Outcome{Found: true, Category: locate.CategoryToday}, nil
}

type memoryPublisher struct {
	mu   sync.Mutex
	msgs []Message
}

func (p *memoryPublisher) Publish(_ context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *memoryPublisher) all() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.msgs...)
}

// chanSource serves queued payloads and then reports nothing.
type chanSource chan []byte

func (c chanSource) Next(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case data := <-c:
		return data, nil
	case <-time.After(10 * time.Millisecond):
		return nil, nil
	}
}

var fixedNow = time.Date(2025, time.November, 30, 14, 0, 0, 0, time.UTC)

func request(t *testing.T, req LocateRequest) []byte {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return data
}

func newTestServer(t *testing.T, loc locate.Locator, pub Publisher) *Server {
	return NewServer(nil, pub, loc,
		WithServerLogger(zaptest.NewLogger(t)),
		WithNow(func() time.Time { return fixedNow }))
}

func TestServer_HandleAccepted(t *testing.T) {
	loc := &fakeLocator{}
	pub := &memoryPublisher{}
	srv := newTestServer(t, loc, pub)

	srv.Handle(context.Background(), request(t, LocateRequest{
		ID: "r1", Sport: "Soccer", Team1: "Brentford FC", Team2: "Wolves", MatchTimeHint: "Sun, Nov 30 at 8:00 PM",
	}))
	srv.Wait()

	msgs := pub.all()
	require.Len(t, msgs, 3)

	assert.Equal(t, EventLocateAck, msgs[0].Type)
	assert.Equal(t, AckAccepted, msgs[0].Status)
	assert.Equal(t, locate.CategoryToday, msgs[0].ExpectedCategory)

	assert.Equal(t, locate.EventCategoryClickSuccess, msgs[1].Type)
	assert.Equal(t, locate.EventMatchFound, msgs[2].Type)
	for _, m := range msgs {
		assert.Equal(t, "r1", m.RequestID)
		assert.Equal(t, fixedNow, m.SentAt)
	}

	require.Len(t, loc.queries, 1)
	assert.Equal(t, locate.Unknown, loc.queries[0].League)
}

func TestServer_HandleInvalid(t *testing.T) {
	loc := &fakeLocator{}
	pub := &memoryPublisher{}
	srv := newTestServer(t, loc, pub)

	srv.Handle(context.Background(), []byte(`{"sport":"Soccer"}`))
	srv.Wait()

	msgs := pub.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, AckInvalid, msgs[0].Status)
	assert.NotEmpty(t, msgs[0].Reason)
	assert.Empty(t, loc.queries)
}

func TestServer_RejectsWhileBusy(t *testing.T) {
	loc := &fakeLocator{release: make(chan struct{}), started: make(chan struct{})}
	pub := &memoryPublisher{}
	srv := newTestServer(t, loc, pub)
	ctx := context.Background()

	srv.Handle(ctx, request(t, LocateRequest{ID: "first", Sport: "Soccer", Team1: "A", Team2: "B"}))
	<-loc.started
	srv.Handle(ctx, request(t, LocateRequest{ID: "second", Sport: "Soccer", Team1: "C", Team2: "D"}))
	close(loc.release)
	srv.Wait()

	var rejected []Message
	terminal := map[string]int{}
	for _, m := range pub.all() {
		if m.Type == EventLocateAck && m.Status == AckRejected {
			rejected = append(rejected, m)
		}
		if m.Type.IsTerminal() {
			terminal[m.RequestID]++
		}
	}
	require.Len(t, rejected, 1)
	assert.Equal(t, "second", rejected[0].RequestID)
	assert.Equal(t, map[string]int{"first": 1}, terminal, "a rejected request gets no terminal event")
}

func TestServer_Run(t *testing.T) {
	src := make(chanSource, 2)
	src <- request(t, LocateRequest{ID: "r1", Sport: "Soccer", Team1: "A", Team2: "B"})

	loc := &fakeLocator{}
	pub := &memoryPublisher{}
	srv := NewServer(src, pub, loc, WithServerLogger(zaptest.NewLogger(t)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, func() bool {
		for _, m := range pub.all() {
			if m.Type == locate.EventMatchFound {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
