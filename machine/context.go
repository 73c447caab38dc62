//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package machine

import (
	"errors"
	"runtime"
)

// Context errors.
var (
	ErrStackTooSmall = errors.New("stack too small")
	ErrNoEntry       = errors.New("no entry point")
	ErrEntryReturned = errors.New("context entry returned")
	ErrFreed         = errors.New("context freed")
)

// Context implements a saved execution context. The context runs on
// its own goroutine which is parked whenever the context is not the
// current one.
type Context struct {
	m      *Machine
	entry  func()
	stack  []byte
	psr    PSR
	resume chan struct{}
	free   chan struct{}
	freed  bool
}

// ContextInit creates a new context that starts executing entry when
// it is switched to for the first time. The context owns the stack
// until it is freed. The entry function must never return.
func (m *Machine) ContextInit(entry func(), stack []byte) (*Context, error) {
	if entry == nil {
		return nil, ErrNoEntry
	}
	if len(stack) < MinStack {
		return nil, ErrStackTooSmall
	}
	ctx := &Context{
		m:      m,
		entry:  entry,
		stack:  stack,
		psr:    PsrCurrentMode,
		resume: make(chan struct{}),
		free:   make(chan struct{}),
	}
	go ctx.run()

	return ctx, nil
}

// Stack returns the context stack. It returns nil after the context
// is freed.
func (ctx *Context) Stack() []byte {
	return ctx.stack
}

// Freed tests if the context has been freed.
func (ctx *Context) Freed() bool {
	return ctx.freed
}

// Free releases the context and its stack. The context must not be
// the current one. Free returns ErrFreed if the context was already
// freed.
func (ctx *Context) Free() error {
	if ctx.freed {
		return ErrFreed
	}
	ctx.freed = true
	ctx.stack = nil
	close(ctx.free)
	return nil
}

func (ctx *Context) run() {
	ctx.wait()
	ctx.entry()
	ctx.m.Halt(1, ErrEntryReturned)
}

// wait parks the calling goroutine until the context is resumed. A
// freed context or a halted machine terminates the goroutine.
func (ctx *Context) wait() {
	select {
	case <-ctx.resume:
	case <-ctx.free:
		runtime.Goexit()
	case <-ctx.m.halted:
		runtime.Goexit()
	}
}

// Current returns the current context or nil during bring-up.
func (m *Machine) Current() *Context {
	return m.current
}

// Switch saves the current state into from and resumes to. The call
// returns when from is switched to again. A nil from is used by the
// bring-up code that has no context of its own; in that case Switch
// returns as soon as to is running and the caller must not touch the
// machine after that.
func (m *Machine) Switch(from, to *Context) {
	if to.freed {
		m.Halt(1, ErrFreed)
	}
	if from == to {
		return
	}
	if from != nil {
		from.psr = m.psr
	}
	m.current = to
	m.psr = to.psr

	select {
	case to.resume <- struct{}{}:
	case <-m.halted:
		runtime.Goexit()
	}
	if from != nil {
		from.wait()
	}
}
