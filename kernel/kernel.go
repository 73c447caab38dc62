//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

// Package kernel implements a cooperative kernel: a process table with
// parent/child lifecycle, priority run queues with a time-slicing
// dispatcher, and blocking mailboxes for inter-process messages.
//
// The kernel runs on a machine.Machine. All kernel state is mutated
// by the single process currently owning the processor, so the kernel
// uses no locks. Public entry points must be called in kernel mode
// from a kernel process; calling them from user mode halts the
// machine.
package kernel

import (
	"time"

	"github.com/markkurossi/usloss/machine"
	"go.uber.org/zap"
)

// MainPriority is the priority of the main process the root process
// starts.
const MainPriority = 3

// Kernel implements the kernel.
type Kernel struct {
	params Params
	m      *machine.Machine
	log    *zap.Logger

	procs      [MaxProc]Process
	numProcs   int
	nextPID    PID
	rootPID    PID
	current    *Process
	runq       runQueues
	lastSwitch time.Duration
	idle       bool
	inHandler  bool

	mboxes     [MaxMbox]Mailbox
	numMboxes  int
	nextMboxID MboxID
	slots      slotPool

	devMboxes  [machine.NumDevices][]MboxID
	devWaiters int
	clockTicks int
}

// New creates a new kernel for the machine.
func New(m *machine.Machine, params *Params) *Kernel {
	kern := &Kernel{
		m:       m,
		nextPID: 1,
	}
	if params != nil {
		kern.params = *params
	}
	if kern.params.Quantum == 0 {
		kern.params.Quantum = DefaultQuantum
	}
	kern.log = kern.params.Logger
	if kern.log == nil {
		kern.log = zap.NewNop()
	}
	for i := range kern.procs {
		kern.procs[i].slot = i
		kern.procs[i].clear()
	}
	kern.runq.init(&kern.procs)
	kern.slots.init()
	for i := range kern.mboxes {
		kern.mboxes[i].clear()
	}

	return kern
}

// Machine returns the kernel's machine.
func (kern *Kernel) Machine() *machine.Machine {
	return kern.m
}

// Run boots the kernel and runs until the machine halts. The root
// process starts main as the main process and halts the machine with
// its exit status once all its children have been joined. Run returns
// the halt status and the cause of a fatal halt.
func (kern *Kernel) Run(main EntryFunc, arg any) (int, error) {
	return kern.m.Boot(func() {
		kern.startup(main, arg)
	})
}

func (kern *Kernel) startup(main EntryFunc, arg any) {
	kern.initDevices()

	root, err := kern.allocProc()
	if err != nil {
		kern.panicf("startup: %v", err)
	}
	root.name = "init"
	root.priority = RootPriority
	root.entry = kern.rootMain(main)
	root.arg = arg
	root.stack = make([]byte, 2*MinStack)
	root.ctx, err = kern.m.ContextInit(kern.trampoline(root), root.stack)
	if err != nil {
		kern.panicf("startup: %v", err)
	}
	root.state = StateRunnable
	kern.rootPID = root.pid
	kern.runq.push(root)

	kern.log.Info("kernel started", zap.Duration("quantum", kern.params.Quantum))

	kern.dispatch()
}

func (kern *Kernel) rootMain(main EntryFunc) EntryFunc {
	return func(arg any) int {
		mainPID, err := kern.Spork("main", main, arg, MinStack, MainPriority)
		if err != nil {
			kern.panicf("init: failed to start main: %v", err)
		}
		var exitStatus int
		for {
			var status int
			pid, err := kern.Join(&status)
			if err != nil {
				break
			}
			if pid == mainPID {
				exitStatus = status
			}
		}
		kern.Halt(exitStatus)
		return 0
	}
}

// trampoline returns the context entry point for the process. It
// enables interrupts, runs the process entry function and quits with
// its return value.
func (kern *Kernel) trampoline(proc *Process) func() {
	return func() {
		kern.m.SetPSR(kern.m.PSR() | machine.PsrCurrentInt)
		status := proc.entry(proc.arg)
		kern.Quit(status)
	}
}

// Halt halts the machine with the status.
func (kern *Kernel) Halt(status int) {
	kern.log.Info("halt", zap.Int("status", status))
	kern.m.Halt(status, nil)
}

// enter checks that the caller is in kernel mode, disables interrupts
// and returns the previous status register for leave.
func (kern *Kernel) enter(name string) machine.PSR {
	old := kern.m.PSR()
	if !old.KernelMode() {
		kern.panicf("ERROR: Someone attempted to call %s while in user mode!",
			name)
	}
	kern.m.SetPSR(old &^ machine.PsrCurrentInt)
	return old
}

// leave restores the status register saved by enter.
func (kern *Kernel) leave(old machine.PSR) {
	kern.m.SetPSR(old)
}
