package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	dialTimeout      = 3 * time.Second
	publishTimeout   = 5 * time.Second
	reconnectBackoff = 5 * time.Second
	notifyBuffer     = 256
)

// ErrBrokerDown is returned while the publisher waits before redialing.
var ErrBrokerDown = errors.New("broker unavailable")

type outgoing struct {
	ctx   context.Context
	queue string
	ev    TicketsEvent
}

// Publisher keeps one connection and channel open and reopens them lazily
// after a failure. A nil *Publisher drops every event.
type Publisher struct {
	url    string
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time

	qmu    sync.RWMutex
	events chan outgoing
	closed bool
	wg     sync.WaitGroup
}

// NewPublisher dials url, declares the event queues and starts the worker
// that drains Notify. It returns nil, nil when url is empty.
func NewPublisher(url string, logger *slog.Logger) (*Publisher, error) {
	const op = "queue.NewPublisher"

	if url == "" {
		return nil, nil
	}

	p := newPublisher(url, logger)

	p.mu.Lock()
	err := p.connectLocked()
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	p.start()

	return p, nil
}

func newPublisher(url string, logger *slog.Logger) *Publisher {
	return &Publisher{
		url:    url,
		logger: logger,
		now:    time.Now,
		events: make(chan outgoing, notifyBuffer),
	}
}

func (p *Publisher) start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for m := range p.events {
			ctx, cancel := context.WithTimeout(m.ctx, publishTimeout)
			if err := p.Publish(ctx, m.queue, m.ev); err != nil {
				p.warn("publish ticket event", m.queue, m.ev, err)
			}
			cancel()
		}
	}()
}

func (p *Publisher) connectLocked() error {
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial:      amqp.DefaultDial(dialTimeout),
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("channel open: %w", err)
	}

	for _, q := range []string{QueueTicketsBooked, QueueTicketsCancelled, QueueTicketsPaid} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
	}

	p.conn, p.ch = conn, ch

	return nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Publish sends ev as a persistent JSON message to queue. After a failed
// dial it returns ErrBrokerDown without redialing until the backoff passes.
func (p *Publisher) Publish(ctx context.Context, queue string, ev TicketsEvent) error {
	const op = "queue.Publisher.Publish"

	if p == nil {
		return nil
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		p.resetLocked()
		if p.now().Before(p.retryAt) {
			return fmt.Errorf("%s:%w", op, ErrBrokerDown)
		}
		if err := p.connectLocked(); err != nil {
			p.retryAt = p.now().Add(reconnectBackoff)
			return fmt.Errorf("%s:%w", op, err)
		}
	}

	if err := p.ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		p.resetLocked()
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Notify queues ev for the background worker and returns at once. It is
// meant for after-commit hooks where the write already succeeded; failures
// and a full buffer are logged.
func (p *Publisher) Notify(ctx context.Context, queue string, ev TicketsEvent) {
	if p == nil {
		return
	}

	p.qmu.RLock()
	defer p.qmu.RUnlock()

	if p.closed {
		return
	}

	select {
	case p.events <- outgoing{ctx: context.WithoutCancel(ctx), queue: queue, ev: ev}:
	default:
		p.warn("ticket event dropped, buffer full", queue, ev, nil)
	}
}

func (p *Publisher) warn(msg, queue string, ev TicketsEvent, err error) {
	if p.logger == nil {
		return
	}

	attrs := []any{slog.String("queue", queue), slog.String("type", ev.Type)}
	if err != nil {
		attrs = append(attrs, slog.Any("err", err))
	}
	p.logger.Warn(msg, attrs...)
}

// Close stops accepting events, waits for queued ones and closes the
// connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}

	p.qmu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.qmu.Unlock()

	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetLocked()

	return nil
}
