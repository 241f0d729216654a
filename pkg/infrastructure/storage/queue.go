package storage

import (
	"sync"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
	"github.com/WangYihang/storefront-detector/pkg/domain/repository"
)

// PendingQueue implements repository.MessageQueue as an unbounded FIFO
type PendingQueue struct {
	items []entity.Message
	mu    sync.Mutex
}

// NewPendingQueue creates an empty pending queue
func NewPendingQueue() repository.MessageQueue {
	return &PendingQueue{}
}

// Push appends a message at the tail
func (q *PendingQueue) Push(msg entity.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, msg)
}

// Drain removes and returns all messages in enqueue order
func (q *PendingQueue) Drain() []entity.Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// Len returns the current queue length
func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}
