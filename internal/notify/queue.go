package notify

import (
	"context"
	"sync"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/metrics"
	"go.uber.org/zap"
)

// EmailMessage is one queued email
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
}

// EmailQueue decouples email delivery from request handling. Enqueue never
// blocks: when the queue is full the email is dropped and counted.
type EmailQueue struct {
	mailer  Mailer
	jobs    chan EmailMessage
	workers int
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu      sync.RWMutex
	started bool
	closed  bool
	wg      sync.WaitGroup
}

func NewEmailQueue(mailer Mailer, size, workers int, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *EmailQueue {
	if size < 1 {
		size = 100
	}
	if workers < 1 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &EmailQueue{
		mailer:  mailer,
		jobs:    make(chan EmailMessage, size),
		workers: workers,
		timeout: timeout,
		metrics: m,
		logger:  logger,
	}
}

// Start launches the delivery workers
func (q *EmailQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
}

// Enqueue reports whether the email was accepted
func (q *EmailQueue) Enqueue(msg EmailMessage) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.metrics.EmailResult("dropped")
		return false
	}
	select {
	case q.jobs <- msg:
		q.metrics.SetEmailQueueDepth(len(q.jobs))
		return true
	default:
		q.metrics.EmailResult("dropped")
		q.logger.Warn("email queue full, dropping email",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
		)
		return false
	}
}

// Len returns the number of emails waiting
func (q *EmailQueue) Len() int {
	return len(q.jobs)
}

// Stop refuses new emails and waits for the queued ones to be delivered,
// or until ctx is done.
func (q *EmailQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *EmailQueue) work() {
	defer q.wg.Done()
	for msg := range q.jobs {
		q.metrics.SetEmailQueueDepth(len(q.jobs))
		q.deliver(msg)
	}
}

func (q *EmailQueue) deliver(msg EmailMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			q.metrics.EmailResult("failed")
			q.logger.Error("panic while sending email", zap.Any("panic", r), zap.String("to", msg.To))
		}
	}()

	if err := q.mailer.Send(ctx, msg.To, msg.Subject, msg.HTML); err != nil {
		q.metrics.EmailResult("failed")
		q.logger.Warn("failed to send email",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return
	}
	q.metrics.EmailResult("sent")
}
