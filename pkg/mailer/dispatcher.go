package mailer

import (
	"context"
	"expvar"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	mailDropped = expvar.NewInt("mail_dropped")
	mailFailed  = expvar.NewInt("mail_failed")
)

// Dispatcher decouples email delivery from request handling. Dispatch never
// blocks and never reports failure to the caller; delivery errors are logged.
type Dispatcher struct {
	sender  Sender
	logger  *logrus.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan EmailJob
	done   chan struct{}
}

func NewDispatcher(sender Sender, logger *logrus.Logger, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Dispatcher{
		sender:  sender,
		logger:  logger,
		timeout: 15 * time.Second,
		jobs:    make(chan EmailJob, buffer),
		done:    make(chan struct{}),
	}
}

// Dispatch queues job for delivery. A full buffer or a closed dispatcher
// drops the job.
func (d *Dispatcher) Dispatch(job EmailJob) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		mailDropped.Add(1)
		d.logger.WithField("to", job.To).Warn("email dispatcher closed; dropping message")
		return
	}
	select {
	case d.jobs <- job:
	default:
		mailDropped.Add(1)
		d.logger.WithField("to", job.To).WithField("subject", job.Subject).Warn("email queue full; dropping message")
	}
}

// Run delivers queued jobs until ctx is cancelled or Close drains the queue.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-d.jobs:
			if !ok {
				return
			}
			d.deliver(ctx, job)
		}
	}
}

// Close stops accepting work and waits for Run to finish the backlog.
// Run must have been started.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) deliver(ctx context.Context, job EmailJob) {
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	if err := d.sender.Send(c, job); err != nil {
		mailFailed.Add(1)
		d.logger.WithError(err).WithField("to", job.To).WithField("subject", job.Subject).Warn("email delivery failed")
		return
	}
	d.logger.WithField("to", job.To).WithField("subject", job.Subject).Debug("email handed off")
}

// LogSender stands in for a real transport when sending is disabled. Bodies
// are not logged since they can carry credentials.
type LogSender struct {
	Logger *logrus.Logger
}

func (s LogSender) Send(_ context.Context, job EmailJob) error {
	s.Logger.WithField("to", job.To).WithField("subject", job.Subject).Info("email sending disabled; message not delivered")
	return nil
}
