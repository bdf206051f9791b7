package deliveryworker

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/whatsapp-intake-agent/internal/channels/whatsapp"
	"github.com/wolfman30/whatsapp-intake-agent/internal/conversation"
	"github.com/wolfman30/whatsapp-intake-agent/internal/observability/metrics"
	"github.com/wolfman30/whatsapp-intake-agent/pkg/logging"
)

// ErrQueueFull is reported when a reply is dropped because its shard is saturated.
var ErrQueueFull = errors.New("delivery: queue full")

type sender interface {
	Send(ctx context.Context, phoneNumberID string, msg whatsapp.OutboundMessage) (*whatsapp.SendResponse, error)
}

type job struct {
	ctx       context.Context
	routingID string
	msg       whatsapp.OutboundMessage
	queuedAt  time.Time
}

// Dispatcher renders replies and delivers them from a fixed pool of workers.
// Replies to the same recipient always land on the same worker so they are
// sent in the order they were dispatched.
type Dispatcher struct {
	sender    sender
	logger    *logging.Logger
	metrics   *metrics.IntakeMetrics
	workers   int
	queueSize int
	timeout   time.Duration
	shards    []chan job
}

func NewDispatcher(s sender, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	d := &Dispatcher{
		sender:    s,
		logger:    logger,
		workers:   4,
		queueSize: 256,
		timeout:   10 * time.Second,
	}
	d.resetShards()
	return d
}

func (d *Dispatcher) WithWorkers(n int) *Dispatcher {
	if n > 0 {
		d.workers = n
		d.resetShards()
	}
	return d
}

// WithQueueSize sets the total buffered capacity, split evenly across workers.
func (d *Dispatcher) WithQueueSize(n int) *Dispatcher {
	if n > 0 {
		d.queueSize = n
		d.resetShards()
	}
	return d
}

func (d *Dispatcher) WithTimeout(t time.Duration) *Dispatcher {
	if t > 0 {
		d.timeout = t
	}
	return d
}

func (d *Dispatcher) WithMetrics(m *metrics.IntakeMetrics) *Dispatcher {
	d.metrics = m
	return d
}

func (d *Dispatcher) resetShards() {
	per := d.queueSize / d.workers
	if per < 1 {
		per = 1
	}
	d.shards = make([]chan job, d.workers)
	for i := range d.shards {
		d.shards[i] = make(chan job, per)
	}
}

// Dispatch renders action and queues it without blocking. The caller's
// cancellation does not reach the send; trace values do.
func (d *Dispatcher) Dispatch(ctx context.Context, routingID string, action conversation.Action) {
	msg, err := whatsapp.Render(action)
	if err != nil {
		d.metrics.ObserveOutbound("invalid", "render_error")
		d.logger.Error("delivery: render failed", "to", action.Recipient, "error", err)
		return
	}
	if err := d.enqueue(ctx, routingID, msg); err != nil {
		d.metrics.ObserveOutbound(msg.Type, "dropped")
		d.logger.Error("delivery: reply dropped", "to", msg.To, "type", msg.Type, "error", err)
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, routingID string, msg whatsapp.OutboundMessage) error {
	j := job{
		ctx:       context.WithoutCancel(ctx),
		routingID: routingID,
		msg:       msg,
		queuedAt:  time.Now(),
	}
	select {
	case d.shards[d.shardFor(msg.To)] <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) shardFor(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32() % uint32(len(d.shards)))
}

// Run starts the workers and blocks until ctx is done. Replies already
// queued at shutdown are still delivered before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	var g errgroup.Group
	for i, shard := range d.shards {
		workerID := i
		queue := shard
		g.Go(func() error {
			d.work(ctx, workerID, queue)
			return nil
		})
	}
	d.logger.Info("delivery workers started", "workers", len(d.shards))
	err := g.Wait()
	d.logger.Info("delivery workers stopped")
	return err
}

func (d *Dispatcher) work(ctx context.Context, workerID int, queue chan job) {
	for {
		select {
		case <-ctx.Done():
			d.drain(workerID, queue)
			return
		case j := <-queue:
			d.deliver(workerID, j)
		}
	}
}

func (d *Dispatcher) drain(workerID int, queue chan job) {
	for {
		select {
		case j := <-queue:
			d.deliver(workerID, j)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(workerID int, j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.timeout)
	defer cancel()

	resp, err := d.sender.Send(ctx, j.routingID, j.msg)
	if err != nil {
		d.metrics.ObserveOutbound(j.msg.Type, "failed")
		d.logger.Error("delivery: send failed",
			"worker", workerID,
			"to", j.msg.To,
			"type", j.msg.Type,
			"error", err,
		)
		return
	}
	d.metrics.ObserveOutbound(j.msg.Type, "sent")
	d.logger.Debug("delivery: sent",
		"worker", workerID,
		"to", j.msg.To,
		"message_id", resp.MessageID(),
		"queued_for", time.Since(j.queuedAt).String(),
	)
}
