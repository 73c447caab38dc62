//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"time"
)

// Dispatcher selects the next process to run. The running process
// keeps the processor unless a higher priority process is runnable or
// its time slice has expired and a process of the same priority is
// waiting.
func (kern *Kernel) Dispatcher() {
	old := kern.enter("dispatcher")
	kern.dispatch()
	kern.leave(old)
}

func (kern *Kernel) dispatch() {
	cur := kern.current
	next := kern.runq.peek()

	for next == nil {
		if cur != nil && cur.state == StateRunning {
			return
		}
		if cur == nil || kern.devWaiters == 0 {
			kern.panicf("dispatcher: no runnable processes")
		}
		kern.idleWait()
		next = kern.runq.peek()
	}

	switch {
	case cur == nil:
		if next.priority != RootPriority {
			kern.panicf("dispatcher: first process %d has priority %d",
				next.pid, next.priority)
		}
		kern.switchTo(next)

	case cur.state != StateRunning:
		kern.switchTo(next)

	case next.priority < cur.priority:
		kern.switchTo(next)

	case next.priority == cur.priority &&
		kern.m.Now()-kern.lastSwitch > kern.params.Quantum:
		kern.switchTo(next)
	}
}

// idleWait waits for a device interrupt while no process is
// runnable. Interrupt handlers do not dispatch while the kernel idles.
func (kern *Kernel) idleWait() {
	kern.idle = true
	kern.m.WaitInt()
	kern.idle = false
}

// preempt runs the dispatcher after the current process has made
// another process runnable. Interrupt handlers dispatch once when
// they finish.
func (kern *Kernel) preempt() {
	if kern.inHandler {
		return
	}
	kern.dispatch()
}

func (kern *Kernel) switchTo(next *Process) {
	now := kern.m.Now()

	kern.runq.remove(next)
	prev := kern.current
	if prev != nil {
		prev.cpuTime += now - prev.sliceStart
		if prev.state == StateRunning && prev != next {
			prev.state = StateRunnable
			kern.runq.push(prev)
		}
	}
	next.state = StateRunning
	next.sliceStart = now
	kern.current = next
	kern.lastSwitch = now

	if prev == next {
		return
	}
	kern.ktraceSwitch(prev, next)

	if prev == nil {
		kern.m.Switch(nil, next.ctx)
	} else {
		kern.m.Switch(prev.ctx, next.ctx)
	}
}

// CurrentTime returns the machine time in microseconds.
func (kern *Kernel) CurrentTime() int {
	return int(kern.m.Now() / time.Microsecond)
}

// ReadTime returns the CPU time of the current process in
// milliseconds.
func (kern *Kernel) ReadTime() int {
	cur := kern.current
	if cur == nil {
		return 0
	}
	cpu := cur.cpuTime + kern.m.Now() - cur.sliceStart
	return int(cpu / time.Millisecond)
}

// ReadCurStartTime returns the machine time in microseconds when the
// current process's time slice started.
func (kern *Kernel) ReadCurStartTime() int {
	cur := kern.current
	if cur == nil {
		return 0
	}
	return int(cur.sliceStart / time.Microsecond)
}
