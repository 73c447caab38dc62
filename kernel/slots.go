//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

// Mailbox limits.
const (
	MaxMbox    = 2000
	MaxSlots   = 2500
	MaxMessage = 150
)

// mailSlot holds one queued message. Free slots and the messages of a
// mailbox are linked through next.
type mailSlot struct {
	next int
	size int
	data [MaxMessage]byte
}

// slotPool implements the global pool of message slots shared by all
// mailboxes.
type slotPool struct {
	slots [MaxSlots]mailSlot
	free  int
	inUse int
}

func (pool *slotPool) init() {
	for i := range pool.slots {
		pool.slots[i].next = i + 1
	}
	pool.slots[MaxSlots-1].next = -1
	pool.free = 0
	pool.inUse = 0
}

// alloc allocates a slot and stores the message into it.
func (pool *slotPool) alloc(msg []byte) (int, bool) {
	idx := pool.free
	if idx < 0 {
		return -1, false
	}
	slot := &pool.slots[idx]
	pool.free = slot.next
	pool.inUse++

	slot.next = -1
	slot.size = copy(slot.data[:], msg)

	return idx, true
}

// release returns the slot to the free list.
func (pool *slotPool) release(idx int) {
	slot := &pool.slots[idx]
	slot.size = 0
	slot.next = pool.free
	pool.free = idx
	pool.inUse--
}

// SlotsInUse returns the number of message slots holding queued
// messages.
func (kern *Kernel) SlotsInUse() int {
	return kern.slots.inUse
}
