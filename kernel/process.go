//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"fmt"
	"math"
	"time"

	"github.com/markkurossi/usloss/machine"
)

// Process table limits.
const (
	MaxProc  = 50
	MaxName  = 50
	MinStack = machine.MinStack
)

// Process priorities. Smaller values run first. RootPriority is
// reserved for the root process.
const (
	HighestPriority = 1
	LowestPriority  = 5
	RootPriority    = 6
	numPriorities   = RootPriority
)

// MinBlockReason is the smallest reason BlockMe accepts. Smaller
// values are reserved for the kernel.
const MinBlockReason = 11

// Kernel block reasons.
const (
	blockZap = iota + 1
	blockSend
	blockRecv
)

var blockNames = map[int]string{
	blockZap:  "zap",
	blockSend: "send",
	blockRecv: "receive",
}

// PID defines process IDs. The zero PID means no process.
type PID int32

func (pid PID) slot() int {
	return int(pid % MaxProc)
}

// EntryFunc defines process entry points. The return value is the
// process exit status.
type EntryFunc func(arg any) int

// ProcState defines process states.
type ProcState int

// Process states.
const (
	StateFree ProcState = iota
	StateRunnable
	StateRunning
	StateBlockedOnJoin
	StateBlocked
	StateZombie
)

var stateNames = map[ProcState]string{
	StateFree:          "free",
	StateRunnable:      "runnable",
	StateRunning:       "running",
	StateBlockedOnJoin: "join",
	StateBlocked:       "blocked",
	StateZombie:        "zombie",
}

func (st ProcState) String() string {
	name, ok := stateNames[st]
	if ok {
		return name
	}
	return fmt.Sprintf("{ProcState %d}", st)
}

// Process defines a process control block. Links to other processes
// are process table slots, with -1 meaning none.
type Process struct {
	slot        int
	pid         PID
	name        string
	priority    int
	state       ProcState
	exitStatus  int
	blockReason int
	entry       EntryFunc
	arg         any
	ctx         *machine.Context
	stack       []byte

	parent      int
	firstChild  int
	nextSibling int
	runNext     int
	queued      bool
	zappers     []PID

	sliceStart time.Duration
	cpuTime    time.Duration
}

// PID returns the process ID.
func (proc *Process) PID() PID {
	return proc.pid
}

// Name returns the process name.
func (proc *Process) Name() string {
	return proc.name
}

// Priority returns the process priority.
func (proc *Process) Priority() int {
	return proc.priority
}

// State returns the process state.
func (proc *Process) State() ProcState {
	return proc.state
}

func (proc *Process) clear() {
	*proc = Process{
		slot:        proc.slot,
		parent:      -1,
		firstChild:  -1,
		nextSibling: -1,
		runNext:     -1,
	}
}

func (proc *Process) stateString() string {
	switch proc.state {
	case StateRunnable:
		return "Runnable"
	case StateRunning:
		return "Running"
	case StateZombie:
		return fmt.Sprintf("Terminated(%d)", proc.exitStatus)
	case StateBlockedOnJoin:
		return "Blocked(waiting for child to quit)"
	case StateBlocked:
		name, ok := blockNames[proc.blockReason]
		if ok {
			return fmt.Sprintf("Blocked(%s)", name)
		}
		return fmt.Sprintf("Blocked(%d)", proc.blockReason)
	default:
		return proc.state.String()
	}
}

// procAt returns the process at the slot or nil for -1.
func (kern *Kernel) procAt(slot int) *Process {
	if slot < 0 {
		return nil
	}
	return &kern.procs[slot]
}

// lookup returns the live process with the pid or nil.
func (kern *Kernel) lookup(pid PID) *Process {
	if pid <= 0 {
		return nil
	}
	proc := &kern.procs[pid.slot()]
	if proc.state == StateFree || proc.pid != pid {
		return nil
	}
	return proc
}

// allocProc reserves the next free process table slot and assigns it
// a new pid.
func (kern *Kernel) allocProc() (*Process, error) {
	if kern.numProcs >= MaxProc {
		return nil, ErrTableFull
	}
	for i := 0; i < MaxProc; i++ {
		pid := kern.nextPID
		if kern.nextPID == math.MaxInt32 {
			kern.nextPID = 1
		} else {
			kern.nextPID++
		}
		proc := &kern.procs[pid.slot()]
		if proc.state != StateFree {
			continue
		}
		proc.clear()
		proc.pid = pid
		kern.numProcs++
		return proc, nil
	}
	return nil, ErrTableFull
}

// reclaim frees the process slot together with its context and
// stack.
func (kern *Kernel) reclaim(proc *Process) {
	if proc.ctx != nil {
		err := proc.ctx.Free()
		if err != nil {
			kern.panicf("reclaim %d: %v", proc.pid, err)
		}
	}
	proc.clear()
	kern.numProcs--
}

// addChild links the child at the end of the parent's child list.
func (kern *Kernel) addChild(parent, child *Process) {
	child.parent = parent.slot
	child.nextSibling = -1

	if parent.firstChild < 0 {
		parent.firstChild = child.slot
		return
	}
	last := kern.procAt(parent.firstChild)
	for last.nextSibling >= 0 {
		last = kern.procAt(last.nextSibling)
	}
	last.nextSibling = child.slot
}

// removeChild unlinks the child from the parent's child list.
func (kern *Kernel) removeChild(parent, child *Process) {
	if parent.firstChild == child.slot {
		parent.firstChild = child.nextSibling
	} else {
		for prev := kern.procAt(parent.firstChild); prev != nil; prev = kern.procAt(prev.nextSibling) {
			if prev.nextSibling == child.slot {
				prev.nextSibling = child.nextSibling
				break
			}
		}
	}
	child.parent = -1
	child.nextSibling = -1
}

// children returns the process's children in insertion order.
func (kern *Kernel) children(parent *Process) []*Process {
	var result []*Process
	for c := kern.procAt(parent.firstChild); c != nil; c = kern.procAt(c.nextSibling) {
		result = append(result, c)
	}
	return result
}
