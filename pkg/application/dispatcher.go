package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
	"github.com/WangYihang/storefront-detector/pkg/domain/repository"
	"github.com/WangYihang/storefront-detector/pkg/domain/service"
	"github.com/WangYihang/storefront-detector/pkg/infrastructure/logger"
)

// DestinationState is the readiness of a destination's observer
type DestinationState int

const (
	// StateUnknown means the observer has not signalled yet; messages queue
	StateUnknown DestinationState = iota
	// StateReady means messages are delivered immediately
	StateReady
	// StateGone means the destination was torn down; messages are discarded
	StateGone
)

func (s DestinationState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateGone:
		return "gone"
	default:
		return "unknown"
	}
}

// DefaultGoneLimit bounds how many removed destinations are remembered
const DefaultGoneLimit = 4096

type destination struct {
	mu      sync.Mutex
	state   DestinationState
	pending repository.MessageQueue
}

type tombstone struct {
	id  entity.DestinationID
	seq uint64
}

// Dispatcher tracks observer readiness per destination and gates message
// delivery on it. Messages sent before the observer is ready are queued
// and flushed in order when it signals.
type Dispatcher struct {
	channel  service.DeliveryChannel
	newQueue func() repository.MessageQueue
	logger   logger.Logger
	stats    *Stats

	mu           sync.Mutex
	destinations map[entity.DestinationID]*destination
	// gone holds removed ids so late sends are discarded. Only the most
	// recent goneLimit removals are kept.
	gone      map[entity.DestinationID]uint64
	goneOrder []tombstone
	goneSeq   uint64
	goneLimit int

	ready   atomic.Int64
	pending atomic.Int64
}

// NewDispatcher creates a dispatcher delivering through channel. newQueue
// builds the pending queue of each destination.
func NewDispatcher(
	channel service.DeliveryChannel,
	newQueue func() repository.MessageQueue,
	log logger.Logger,
	stats *Stats,
) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	if stats == nil {
		stats = NewStats(nil)
	}
	return &Dispatcher{
		channel:      channel,
		newQueue:     newQueue,
		logger:       log,
		stats:        stats,
		destinations: make(map[entity.DestinationID]*destination),
		gone:         make(map[entity.DestinationID]uint64),
		goneLimit:    DefaultGoneLimit,
	}
}

// lookup returns the live state of id, creating it on first reference.
// It returns nil for a removed id.
func (d *Dispatcher) lookup(id entity.DestinationID) *destination {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, removed := d.gone[id]; removed {
		return nil
	}
	return d.liveLocked(id)
}

func (d *Dispatcher) liveLocked(id entity.DestinationID) *destination {
	dst, ok := d.destinations[id]
	if !ok {
		dst = &destination{state: StateUnknown, pending: d.newQueue()}
		d.destinations[id] = dst
	}
	return dst
}

// buryLocked moves id from the live set to the removed set
func (d *Dispatcher) buryLocked(id entity.DestinationID) *destination {
	dst := d.destinations[id]
	delete(d.destinations, id)

	d.goneSeq++
	d.gone[id] = d.goneSeq
	d.goneOrder = append(d.goneOrder, tombstone{id: id, seq: d.goneSeq})

	for len(d.gone) > d.goneLimit || len(d.goneOrder) > 2*d.goneLimit {
		oldest := d.goneOrder[0]
		d.goneOrder = d.goneOrder[1:]
		if d.gone[oldest.id] == oldest.seq {
			delete(d.gone, oldest.id)
		}
	}
	return dst
}

// MarkReady records that the observer of id is alive and flushes its
// pending queue in FIFO order. A torn down id is revived, since the
// substrate may reuse identifiers.
func (d *Dispatcher) MarkReady(ctx context.Context, id entity.DestinationID) {
	d.mu.Lock()
	delete(d.gone, id)
	dst := d.liveLocked(id)
	d.mu.Unlock()

	dst.mu.Lock()
	defer dst.mu.Unlock()

	if dst.state != StateReady {
		d.stats.setReady(d.ready.Add(1))
	}
	dst.state = StateReady

	queued := dst.pending.Drain()
	if len(queued) > 0 {
		d.stats.setPending(d.pending.Add(-int64(len(queued))))
		d.logger.Debug("flushing pending messages",
			logger.String("destination", id.String()),
			logger.Int("count", len(queued)),
		)
	}
	for _, msg := range queued {
		d.deliver(ctx, id, msg)
	}
}

// Send delivers msg to id now if its observer is ready, queues it if the
// readiness is unknown, and discards it if id was torn down.
func (d *Dispatcher) Send(ctx context.Context, id entity.DestinationID, msg entity.Message) {
	dst := d.lookup(id)
	if dst == nil {
		d.discard(id)
		return
	}
	dst.mu.Lock()
	defer dst.mu.Unlock()

	switch dst.state {
	case StateReady:
		d.deliver(ctx, id, msg)
	case StateUnknown:
		dst.pending.Push(msg)
		d.stats.setPending(d.pending.Add(1))
		d.stats.message(outcomeQueued)
	case StateGone:
		d.discard(id)
	}
}

func (d *Dispatcher) discard(id entity.DestinationID) {
	d.stats.message(outcomeDiscarded)
	d.logger.Debug("discarding message for removed destination",
		logger.String("destination", id.String()),
	)
}

// Teardown discards the pending queue of id and marks it gone
func (d *Dispatcher) Teardown(id entity.DestinationID) {
	d.mu.Lock()
	dst := d.buryLocked(id)
	d.mu.Unlock()
	if dst == nil {
		return
	}

	dst.mu.Lock()
	defer dst.mu.Unlock()

	if dst.state == StateReady {
		d.stats.setReady(d.ready.Add(-1))
	}
	dst.state = StateGone

	if dropped := dst.pending.Drain(); len(dropped) > 0 {
		d.stats.setPending(d.pending.Add(-int64(len(dropped))))
		for range dropped {
			d.stats.message(outcomeDiscarded)
		}
	}
}

// State returns the current state of id without creating it
func (d *Dispatcher) State(id entity.DestinationID) DestinationState {
	d.mu.Lock()
	_, removed := d.gone[id]
	dst, ok := d.destinations[id]
	d.mu.Unlock()
	if removed {
		return StateGone
	}
	if !ok {
		return StateUnknown
	}

	dst.mu.Lock()
	defer dst.mu.Unlock()
	return dst.state
}

// ReadyCount returns the number of ready destinations
func (d *Dispatcher) ReadyCount() int {
	return int(d.ready.Load())
}

// PendingCount returns the number of queued messages across destinations
func (d *Dispatcher) PendingCount() int {
	return int(d.pending.Load())
}

// deliver hands msg to the channel; failures are logged and dropped
func (d *Dispatcher) deliver(ctx context.Context, id entity.DestinationID, msg entity.Message) {
	if err := d.channel.Deliver(ctx, id, msg); err != nil {
		var deliveryErr *entity.DeliveryError
		if !errors.As(err, &deliveryErr) {
			err = &entity.DeliveryError{Destination: id, Err: err}
		}
		d.stats.message(outcomeFailed)
		d.logger.Warn("delivery failed",
			logger.String("destination", id.String()),
			logger.Error(err),
		)
		return
	}
	d.stats.message(outcomeDelivered)
}
