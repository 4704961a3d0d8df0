package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"feedlink/pkg/requestcontext"
)

const defaultBufferSize = 1024

// Publisher enqueues events without blocking callers and drains them into a
// Sink on a background goroutine started by Run.
type Publisher struct {
	sink    Sink
	inbox   chan Event
	logger  *slog.Logger
	metrics *Metrics
	breaker *CircuitBreaker
}

// Option configures the Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithBufferSize bounds the number of events waiting for the sink.
func WithBufferSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.inbox = make(chan Event, n)
		}
	}
}

func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(p *Publisher) {
		p.breaker = cb
	}
}

func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:    sink,
		inbox:   make(chan Event, defaultBufferSize),
		logger:  slog.Default(),
		breaker: NewCircuitBreaker(5, 30*time.Second),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit fills in id, timestamp and request id, then enqueues. A full buffer
// drops the event.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if agent := requestcontext.ClientAgent(ctx); event.Client == "" {
		event.Client = agent.String()
		event.Bot = agent.Bot
	}

	select {
	case p.inbox <- event:
		if p.metrics != nil {
			p.metrics.IncrementEmitted(event.Type)
		}
	default:
		if p.metrics != nil {
			p.metrics.IncrementDropped()
		}
		p.logger.WarnContext(ctx, "audit buffer full, event dropped",
			"event_type", event.Type,
			"request_id", event.RequestID,
		)
	}
}

// Run drains the buffer until ctx is cancelled, then flushes what is left
// with a short grace period.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.flush()
			return nil
		case event := <-p.inbox:
			p.deliver(ctx, event)
		}
	}
}

func (p *Publisher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event := <-p.inbox:
			p.deliver(ctx, event)
		default:
			return
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, event Event) {
	if !p.breaker.Allow() {
		if p.metrics != nil {
			p.metrics.IncrementDropped()
		}
		return
	}
	if err := p.sink.Append(ctx, event); err != nil {
		p.breaker.RecordFailure()
		if p.metrics != nil {
			p.metrics.IncrementFailed()
		}
		p.logger.ErrorContext(ctx, "audit sink append failed",
			"error", err,
			"event_type", event.Type,
			"event_id", event.ID,
		)
		return
	}
	p.breaker.RecordSuccess()
}

// Pending reports the number of buffered events.
func (p *Publisher) Pending() int {
	return len(p.inbox)
}
