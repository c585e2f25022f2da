package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grez-lucas/event-locator/internal/lookup"
	"github.com/grez-lucas/event-locator/internal/metrics"
	"github.com/grez-lucas/event-locator/internal/scraper/locate"
	"go.uber.org/zap"
)

// Source yields raw request payloads. Nil data with a nil error means
// nothing arrived yet.
type Source interface {
	Next(ctx context.Context) ([]byte, error)
}

// Publisher delivers messages to the requesting side.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, msg Message) error

func (f PublisherFunc) Publish(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// LogPublisher writes messages to a logger. It backs the one-shot CLI mode.
type LogPublisher struct {
	Logger *zap.Logger
}

func (p LogPublisher) Publish(_ context.Context, msg Message) error {
	p.Logger.Info("locator event",
		zap.String("request_id", msg.RequestID),
		zap.String("type", string(msg.Type)),
		zap.String("category", msg.Category.String()),
		zap.String("sport", msg.Sport),
		zap.String("status", msg.Status),
		zap.String("reason", msg.Reason))
	return nil
}

// Server feeds requests from a Source into a Locator one at a time.
// Requests arriving while a run is active are acked as rejected.
type Server struct {
	src     Source
	pub     Publisher
	locator locate.Locator
	logger  *zap.Logger
	now     func() time.Time
	backoff time.Duration

	busy atomic.Bool
	wg   sync.WaitGroup
}

type ServerOption func(*Server)

func WithServerLogger(log *zap.Logger) ServerOption {
	return func(s *Server) { s.logger = log }
}

func WithNow(now func() time.Time) ServerOption {
	return func(s *Server) { s.now = now }
}

// WithErrorBackoff sets the pause after a failing Source read.
func WithErrorBackoff(d time.Duration) ServerOption {
	return func(s *Server) { s.backoff = d }
}

func NewServer(src Source, pub Publisher, locator locate.Locator, opts ...ServerOption) *Server {
	s := &Server{
		src:     src,
		pub:     pub,
		locator: locator,
		logger:  zap.NewNop(),
		now:     time.Now,
		backoff: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reads requests until ctx is done, then waits for the active run.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("locator server started")
	defer s.wg.Wait()

	for {
		data, err := s.src.Next(ctx)
		if ctx.Err() != nil {
			s.logger.Info("locator server stopping")
			return nil
		}
		if err != nil {
			s.logger.Error("failed to read request", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.backoff):
			}
			continue
		}
		if data == nil {
			continue
		}
		s.Handle(ctx, data)
	}
}

// Handle acks one raw request and, when accepted, starts its run in the
// background.
func (s *Server) Handle(ctx context.Context, data []byte) {
	req, err := ParseRequest(data)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(AckInvalid).Inc()
		s.logger.Warn("invalid request", zap.Error(err))
		s.publish(ctx, Message{
			Event:  locate.Event{Type: EventLocateAck, Reason: err.Error()},
			Status: AckInvalid,
		})
		return
	}

	log := s.logger.With(zap.String("request_id", req.ID))
	expected := lookup.Classify(req.MatchTimeHint, s.now())

	if !s.busy.CompareAndSwap(false, true) {
		metrics.RequestsTotal.WithLabelValues(AckRejected).Inc()
		log.Warn("request rejected: a locate run is in flight")
		s.publish(ctx, Message{
			RequestID: req.ID,
			Event:     locate.Event{Type: EventLocateAck, Reason: locate.ErrBusy.Error()},
			Status:    AckRejected,
		})
		return
	}

	metrics.RequestsTotal.WithLabelValues(AckAccepted).Inc()
	log.Info("request accepted",
		zap.String("sport", req.Sport),
		zap.String("team1", req.Team1),
		zap.String("team2", req.Team2),
		zap.String("expected_category", expected.String()))
	s.publish(ctx, Message{
		RequestID:        req.ID,
		Event:            locate.Event{Type: EventLocateAck},
		Status:           AckAccepted,
		ExpectedCategory: expected,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)
		s.run(ctx, req, log)
	}()
}

// Wait blocks until the active run, if any, has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) run(ctx context.Context, req LocateRequest, log *zap.Logger) {
	rep := locate.ReporterFunc(func(ctx context.Context, ev locate.Event) error {
		return s.pub.Publish(ctx, Message{RequestID: req.ID, Event: ev, SentAt: s.now()})
	})

	outcome, err := s.locator.Locate(ctx, req.Query(), rep)
	switch {
	case errors.Is(err, locate.ErrBusy):
		log.Warn("locator refused the run", zap.Error(err))
		s.publish(ctx, Message{
			RequestID: req.ID,
			Event: locate.Event{
				Type:   locate.EventMatchNotFound,
				Team1:  req.Team1,
				Team2:  req.Team2,
				Reason: err.Error(),
			},
		})
	case err != nil:
		log.Error("locate run failed", zap.Error(err))
	case outcome.Found:
		log.Info("locate run finished", zap.String("category", outcome.Category.String()))
	default:
		log.Info("locate run finished without a match", zap.Int("attempted", len(outcome.Attempted)))
	}
}

func (s *Server) publish(ctx context.Context, msg Message) {
	msg.SentAt = s.now()
	if err := s.pub.Publish(ctx, msg); err != nil {
		s.logger.Warn("failed to publish message", zap.String("type", string(msg.Type)), zap.Error(err))
	}
}
