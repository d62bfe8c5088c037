// SPDX-License-Identifier: GPL-3.0-or-later

package ferrokernel

// MessageQueue is a bounded circular buffer of fixed-size messages,
// bracketed by two semaphores (§4.7): notFull gates senders, notEmpty
// gates receivers, giving automatic backpressure without a third
// primitive. The ring-header shape (head/tail indices modulo capacity)
// mirrors coprocessor_manager.go's mailbox rings
// (RING_HEAD_OFFSET/RING_TAIL_OFFSET).
type MessageQueue struct {
	buf      []byte
	msgSize  int
	capacity int
	head     int
	tail     int
	notFull  *Semaphore
	notEmpty *Semaphore
}

// NewMessageQueue creates a queue holding up to capacity messages of
// msgSize bytes each.
func NewMessageQueue(s *Scheduler, capacity, msgSize int) *MessageQueue {
	return &MessageQueue{
		buf:      make([]byte, capacity*msgSize),
		msgSize:  msgSize,
		capacity: capacity,
		notFull:  NewSemaphore(s, int32(capacity)),
		notEmpty: NewSemaphore(s, 0),
	}
}

func (q *MessageQueue) slot(i int) []byte {
	off := i * q.msgSize
	return q.buf[off : off+q.msgSize]
}

// Send blocks until there is room, then enqueues msg (len(msg) must equal
// the configured message size).
func (q *MessageQueue) Send(msg []byte) error {
	if len(msg) != q.msgSize {
		return ErrInvalid
	}
	q.notFull.Wait()
	g := AcquireGuard()
	copy(q.slot(q.head), msg)
	q.head = (q.head + 1) % q.capacity
	g.Release()
	q.notEmpty.Post()
	return nil
}

// Recv blocks until a message is available, then copies it into out.
func (q *MessageQueue) Recv(out []byte) error {
	if len(out) != q.msgSize {
		return ErrInvalid
	}
	q.notEmpty.Wait()
	g := AcquireGuard()
	copy(out, q.slot(q.tail))
	q.tail = (q.tail + 1) % q.capacity
	g.Release()
	q.notFull.Post()
	return nil
}

// TrySend enqueues without blocking, failing with ErrQueueFull if full.
func (q *MessageQueue) TrySend(msg []byte) error {
	if len(msg) != q.msgSize {
		return ErrInvalid
	}
	if err := q.notFull.TryWait(); err != nil {
		return ErrQueueFull
	}
	g := AcquireGuard()
	copy(q.slot(q.head), msg)
	q.head = (q.head + 1) % q.capacity
	g.Release()
	q.notEmpty.Post()
	return nil
}

// TryRecv dequeues without blocking, failing with ErrQueueEmpty if empty.
func (q *MessageQueue) TryRecv(out []byte) error {
	if len(out) != q.msgSize {
		return ErrInvalid
	}
	if err := q.notEmpty.TryWait(); err != nil {
		return ErrQueueEmpty
	}
	g := AcquireGuard()
	copy(out, q.slot(q.tail))
	q.tail = (q.tail + 1) % q.capacity
	g.Release()
	q.notFull.Post()
	return nil
}

// Count returns the current number of pending messages.
func (q *MessageQueue) Count() int32 { return q.notEmpty.Count() }

// Capacity returns the queue's configured slot capacity.
func (q *MessageQueue) Capacity() int { return q.capacity }
