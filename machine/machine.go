//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package machine simulates the hardware the kernel runs on: execution
// contexts, the processor status register, the interrupt vector with
// the clock, disk and terminal devices, and the halt instruction.
//
// Exactly one context executes at any time. Contexts are backed by
// goroutines that hand the processor to each other explicitly, so
// everything that runs on a context sees the machine state without
// locking. Only Post may be called from goroutines outside the
// machine.
package machine

import (
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// MinStack defines the minimum context stack size in bytes.
const MinStack = 80 * 1024

// Params define machine parameters.
type Params struct {
	Clock         clock.Clock
	Console       io.Writer
	ClockInterval time.Duration
}

// Machine implements the simulated machine.
type Machine struct {
	// IntVec holds the interrupt handlers, indexed by device.
	IntVec [NumDevices]Handler

	params  Params
	boot    time.Time
	psr     PSR
	current *Context

	m       sync.Mutex
	pending []intr
	intrC   chan struct{}

	haltOnce sync.Once
	halted   chan struct{}
	status   int
	cause    error
}

// New creates a new machine.
func New(params *Params) *Machine {
	m := &Machine{
		psr:    PsrCurrentMode,
		intrC:  make(chan struct{}, 1),
		halted: make(chan struct{}),
	}
	if params != nil {
		m.params = *params
	}
	if m.params.Clock == nil {
		m.params.Clock = clock.New()
	}
	if m.params.Console == nil {
		m.params.Console = os.Stdout
	}
	if m.params.ClockInterval == 0 {
		m.params.ClockInterval = 20 * time.Millisecond
	}
	m.boot = m.params.Clock.Now()

	return m
}

// Clock returns the machine's clock.
func (m *Machine) Clock() clock.Clock {
	return m.params.Clock
}

// Console returns the machine console.
func (m *Machine) Console() io.Writer {
	return m.params.Console
}

// Now returns the time elapsed since the machine was created.
func (m *Machine) Now() time.Duration {
	return m.params.Clock.Since(m.boot)
}

// Boot runs start on a new context-less goroutine and waits until
// the machine halts. It returns the halt status and cause.
func (m *Machine) Boot(start func()) (int, error) {
	go start()
	<-m.halted
	return m.status, m.cause
}

// Halt stops the machine with the status and cause. The first call
// wins. Halt never returns to its caller.
func (m *Machine) Halt(status int, cause error) {
	m.haltOnce.Do(func() {
		m.status = status
		m.cause = cause
		close(m.halted)
	})
	runtime.Goexit()
}

// Halted returns a channel that is closed when the machine halts.
func (m *Machine) Halted() <-chan struct{} {
	return m.halted
}
