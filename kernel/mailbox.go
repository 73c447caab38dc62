//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"math"
)

// MboxID defines mailbox IDs.
type MboxID int32

func (id MboxID) slot() int {
	return int(id % MaxMbox)
}

// waiter is a process blocked on a mailbox. For producers buf holds
// the message, for consumers the receive buffer.
type waiter struct {
	pid  PID
	buf  []byte
	n    int
	err  error
	next *waiter
}

// waitQueue implements a FIFO of mailbox waiters.
type waitQueue struct {
	head  *waiter
	tail  *waiter
	count int
}

func (q *waitQueue) push(w *waiter) {
	w.next = nil
	if q.tail == nil {
		q.head = w
	} else {
		q.tail.next = w
	}
	q.tail = w
	q.count++
}

func (q *waitQueue) peek() *waiter {
	return q.head
}

func (q *waitQueue) pop() *waiter {
	w := q.head
	if w == nil {
		return nil
	}
	q.head = w.next
	if q.head == nil {
		q.tail = nil
	}
	w.next = nil
	q.count--
	return w
}

// Mailbox implements a bounded message queue with blocked producer
// and consumer queues.
type Mailbox struct {
	id        MboxID
	inUse     bool
	capacity  int
	slotSize  int
	queued    int
	head      int
	tail      int
	producers waitQueue
	consumers waitQueue
}

func (mb *Mailbox) clear() {
	*mb = Mailbox{
		head: -1,
		tail: -1,
	}
}

// MboxCreate creates a mailbox holding at most capacity messages of
// at most slotSize bytes. A zero capacity mailbox passes messages
// directly from producers to consumers.
func (kern *Kernel) MboxCreate(capacity, slotSize int) (MboxID, error) {
	old := kern.enter("MboxCreate")
	id, err := kern.mboxCreate(capacity, slotSize)
	kern.leave(old)
	return id, err
}

func (kern *Kernel) mboxCreate(capacity, slotSize int) (MboxID, error) {
	if capacity < 0 || capacity > MaxSlots ||
		slotSize < 0 || slotSize > MaxMessage {
		return -1, ErrInvalidArgument
	}
	if kern.numMboxes >= MaxMbox {
		return -1, ErrMboxTableFull
	}
	for i := 0; i < MaxMbox; i++ {
		id := kern.nextMboxID
		if kern.nextMboxID == math.MaxInt32 {
			kern.nextMboxID = numDeviceMboxes
		} else {
			kern.nextMboxID++
		}
		mb := &kern.mboxes[id.slot()]
		if mb.inUse {
			continue
		}
		mb.clear()
		mb.id = id
		mb.inUse = true
		mb.capacity = capacity
		mb.slotSize = slotSize
		kern.numMboxes++
		kern.ktraceMbox("create", mb)
		return id, nil
	}
	return -1, ErrMboxTableFull
}

func (kern *Kernel) lookupMbox(id MboxID) *Mailbox {
	if id < 0 {
		return nil
	}
	mb := &kern.mboxes[id.slot()]
	if !mb.inUse || mb.id != id {
		return nil
	}
	return mb
}

// MboxRelease releases the mailbox. Queued messages are discarded and
// all blocked producers and consumers fail with ErrMailboxReleased.
func (kern *Kernel) MboxRelease(id MboxID) error {
	old := kern.enter("MboxRelease")

	if id >= 0 && id < numDeviceMboxes {
		kern.leave(old)
		return ErrInvalidArgument
	}
	mb := kern.lookupMbox(id)
	if mb == nil {
		kern.leave(old)
		return ErrInvalidMailbox
	}
	for mb.head >= 0 {
		idx := mb.head
		mb.head = kern.slots.slots[idx].next
		kern.slots.release(idx)
	}
	for w := mb.producers.pop(); w != nil; w = mb.producers.pop() {
		w.err = ErrMailboxReleased
		kern.wakeWaiter(w)
	}
	for w := mb.consumers.pop(); w != nil; w = mb.consumers.pop() {
		w.err = ErrMailboxReleased
		kern.wakeWaiter(w)
	}
	kern.ktraceMbox("release", mb)
	mb.clear()
	kern.numMboxes--

	kern.preempt()
	kern.leave(old)

	return nil
}

// MboxSend sends the message to the mailbox, blocking while the
// mailbox is full.
func (kern *Kernel) MboxSend(id MboxID, msg []byte) error {
	old := kern.enter("MboxSend")
	err := kern.send(id, msg, false)
	kern.leave(old)
	return err
}

// MboxCondSend sends the message to the mailbox. It fails with
// ErrWouldBlock if the mailbox is full.
func (kern *Kernel) MboxCondSend(id MboxID, msg []byte) error {
	old := kern.enter("MboxCondSend")
	err := kern.send(id, msg, true)
	kern.leave(old)
	return err
}

// MboxRecv receives the next message from the mailbox into buf,
// blocking while the mailbox is empty. It returns the message length.
func (kern *Kernel) MboxRecv(id MboxID, buf []byte) (int, error) {
	old := kern.enter("MboxRecv")
	n, err := kern.recv(id, buf, false)
	kern.leave(old)
	return n, err
}

// MboxCondRecv receives the next message from the mailbox into
// buf. It fails with ErrWouldBlock if the mailbox is empty.
func (kern *Kernel) MboxCondRecv(id MboxID, buf []byte) (int, error) {
	old := kern.enter("MboxCondRecv")
	n, err := kern.recv(id, buf, true)
	kern.leave(old)
	return n, err
}

func (kern *Kernel) send(id MboxID, msg []byte, cond bool) error {
	mb := kern.lookupMbox(id)
	if mb == nil {
		return ErrInvalidMailbox
	}
	if len(msg) > mb.slotSize {
		return ErrMessageTooLarge
	}

	var woke bool
	for w := mb.consumers.pop(); w != nil; w = mb.consumers.pop() {
		woke = true
		if len(msg) > len(w.buf) {
			w.err = ErrBufferTooSmall
			kern.wakeWaiter(w)
			continue
		}
		w.n = copy(w.buf, msg)
		kern.wakeWaiter(w)
		kern.preempt()
		return nil
	}
	if mb.queued < mb.capacity {
		err := kern.enqueue(mb, msg)
		if woke {
			kern.preempt()
		}
		return err
	}
	if cond {
		if woke {
			kern.preempt()
		}
		return ErrWouldBlock
	}
	w := &waiter{
		pid: kern.current.pid,
		buf: msg,
	}
	mb.producers.push(w)
	kern.block(blockSend)

	return w.err
}

func (kern *Kernel) recv(id MboxID, buf []byte, cond bool) (int, error) {
	mb := kern.lookupMbox(id)
	if mb == nil {
		return 0, ErrInvalidMailbox
	}

	if mb.queued > 0 {
		idx := mb.head
		slot := &kern.slots.slots[idx]
		if slot.size > len(buf) {
			return 0, ErrBufferTooSmall
		}
		n := copy(buf, slot.data[:slot.size])
		mb.head = slot.next
		if mb.head < 0 {
			mb.tail = -1
		}
		kern.slots.release(idx)
		mb.queued--

		if w := mb.producers.pop(); w != nil {
			w.err = kern.enqueue(mb, w.buf)
			kern.wakeWaiter(w)
			kern.preempt()
		}
		return n, nil
	}

	if w := mb.producers.peek(); w != nil {
		if len(w.buf) > len(buf) {
			return 0, ErrBufferTooSmall
		}
		mb.producers.pop()
		n := copy(buf, w.buf)
		kern.wakeWaiter(w)
		kern.preempt()
		return n, nil
	}

	if cond {
		return 0, ErrWouldBlock
	}
	w := &waiter{
		pid: kern.current.pid,
		buf: buf,
	}
	mb.consumers.push(w)
	kern.block(blockRecv)

	return w.n, w.err
}

// enqueue stores the message at the tail of the mailbox queue.
func (kern *Kernel) enqueue(mb *Mailbox, msg []byte) error {
	idx, ok := kern.slots.alloc(msg)
	if !ok {
		return ErrNoSlots
	}
	if mb.tail < 0 {
		mb.head = idx
	} else {
		kern.slots.slots[mb.tail].next = idx
	}
	mb.tail = idx
	mb.queued++
	return nil
}

func (kern *Kernel) wakeWaiter(w *waiter) {
	proc := kern.lookup(w.pid)
	if proc == nil {
		kern.panicf("mailbox waiter %d does not exist", w.pid)
	}
	kern.wake(proc)
}
