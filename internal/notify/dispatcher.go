package notify

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when the dispatcher cannot accept more messages.
	ErrQueueFull = errors.New("notification queue is full")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("notification dispatcher closed")
)

// DispatcherConfig controls the notification worker pool.
type DispatcherConfig struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

func (c *DispatcherConfig) setDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
}

type job struct {
	ctx context.Context
	msg Message
}

// Dispatcher queues messages and delivers them from background workers, so
// callers never wait on the transport. Delivery failures are logged.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	queue   chan job
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts a Dispatcher delivering through sender.
func NewDispatcher(sender Sender, cfg DispatcherConfig) *Dispatcher {
	cfg.setDefaults()
	d := &Dispatcher{
		sender:  sender,
		timeout: cfg.SendTimeout,
		queue:   make(chan job, cfg.QueueSize),
	}
	d.wg.Add(cfg.Workers)
	for range cfg.Workers {
		go d.work()
	}
	return d
}

// Notify enqueues msg without blocking. The message outlives ctx
// cancellation but keeps its values, including the logger.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- job{ctx: context.WithoutCancel(ctx), msg: msg}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting messages, delivers what is queued and waits for the
// workers to exit. It is safe to call Close more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.queue {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.timeout)
	defer cancel()

	lg := zctx.From(j.ctx)
	defer func() {
		if r := recover(); r != nil {
			lg.Error("Notification sender panic", zap.Any("panic", r), zap.String("to", j.msg.To))
		}
	}()

	if err := d.sender.Send(ctx, j.msg); err != nil {
		lg.Warn("Notification delivery failed",
			zap.String("to", j.msg.To),
			zap.String("subject", j.msg.Subject),
			zap.Error(err),
		)
	}
}
