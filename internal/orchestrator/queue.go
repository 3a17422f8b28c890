package orchestrator

import (
	"sync"

	"github.com/JamieWells1/solstice/internal/common"
)

// orderQueue is the producer/worker hand-off: a FIFO guarded by a
// mutex and condition variable. Pop blocks until an order arrives or
// the queue is closed and drained.
type orderQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []*common.Order
	done  bool
}

func newOrderQueue() *orderQueue {
	q := &orderQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *orderQueue) Push(order *common.Order) {
	q.mu.Lock()
	q.items = append(q.items, order)
	q.mu.Unlock()

	q.cond.Signal()
}

// Pop returns the next order, or nil once the queue is closed and
// empty.
func (q *orderQueue) Pop() *common.Order {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.done {
		q.cond.Wait()
	}

	if len(q.items) == 0 {
		return nil
	}

	order := q.items[0]
	q.items = q.items[1:]
	return order
}

// Close marks the queue done and wakes every waiter so workers drain
// the remainder and exit.
func (q *orderQueue) Close() {
	q.mu.Lock()
	q.done = true
	q.mu.Unlock()

	q.cond.Broadcast()
}
