//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

// runQueues implements one FIFO queue of runnable processes per
// priority level. The queues are linked through the processes'
// runNext slots.
type runQueues struct {
	procs *[MaxProc]Process
	head  [numPriorities]int
	tail  [numPriorities]int
	count [numPriorities]int
}

func (rq *runQueues) init(procs *[MaxProc]Process) {
	rq.procs = procs
	for i := range rq.head {
		rq.head[i] = -1
		rq.tail[i] = -1
		rq.count[i] = 0
	}
}

// push adds the process to the tail of its priority queue.
func (rq *runQueues) push(proc *Process) {
	if proc.queued {
		return
	}
	q := proc.priority - 1
	proc.runNext = -1
	proc.queued = true
	if rq.tail[q] < 0 {
		rq.head[q] = proc.slot
	} else {
		rq.procs[rq.tail[q]].runNext = proc.slot
	}
	rq.tail[q] = proc.slot
	rq.count[q]++
}

// remove removes the process from its priority queue.
func (rq *runQueues) remove(proc *Process) {
	if !proc.queued {
		return
	}
	q := proc.priority - 1
	prev := -1
	for slot := rq.head[q]; slot >= 0; slot = rq.procs[slot].runNext {
		if slot != proc.slot {
			prev = slot
			continue
		}
		if prev < 0 {
			rq.head[q] = proc.runNext
		} else {
			rq.procs[prev].runNext = proc.runNext
		}
		if rq.tail[q] == proc.slot {
			rq.tail[q] = prev
		}
		break
	}
	proc.runNext = -1
	proc.queued = false
	rq.count[q]--
}

// peek returns the head of the highest-priority non-empty queue.
func (rq *runQueues) peek() *Process {
	for q := range rq.head {
		if rq.head[q] >= 0 {
			return &rq.procs[rq.head[q]]
		}
	}
	return nil
}

// len returns the number of queued processes at the priority.
func (rq *runQueues) len(priority int) int {
	return rq.count[priority-1]
}

// pids returns the queued pids at the priority in queue order.
func (rq *runQueues) pids(priority int) []PID {
	var result []PID
	for slot := rq.head[priority-1]; slot >= 0; slot = rq.procs[slot].runNext {
		result = append(result, rq.procs[slot].pid)
	}
	return result
}
