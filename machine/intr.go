//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package machine

import (
	"fmt"
	"runtime"
	"time"
)

// Device defines interrupting devices.
type Device int

// Devices.
const (
	DevClock Device = iota
	DevDisk
	DevTerm
	NumDevices
)

// Device units.
const (
	ClockUnits = 1
	DiskUnits  = 2
	TermUnits  = 4
)

var deviceNames = map[Device]string{
	DevClock: "clock",
	DevDisk:  "disk",
	DevTerm:  "term",
}

func (dev Device) String() string {
	name, ok := deviceNames[dev]
	if ok {
		return name
	}
	return fmt.Sprintf("{Device %d}", int(dev))
}

// Units returns the number of units the device has.
func (dev Device) Units() int {
	switch dev {
	case DevClock:
		return ClockUnits
	case DevDisk:
		return DiskUnits
	case DevTerm:
		return TermUnits
	default:
		return 0
	}
}

// Handler handles device interrupts. The status is the device status
// word at the time of the interrupt.
type Handler func(dev Device, unit, status int)

type intr struct {
	dev    Device
	unit   int
	status int
}

// Post queues an interrupt for delivery. It may be called from any
// goroutine.
func (m *Machine) Post(dev Device, unit, status int) {
	m.m.Lock()
	m.pending = append(m.pending, intr{
		dev:    dev,
		unit:   unit,
		status: status,
	})
	m.m.Unlock()

	select {
	case m.intrC <- struct{}{}:
	default:
	}
}

// Interrupt posts an interrupt and delivers it immediately if
// interrupts are enabled.
func (m *Machine) Interrupt(dev Device, unit, status int) {
	m.Post(dev, unit, status)
	m.Poll()
}

// Poll delivers pending interrupts on the current context while
// interrupts are enabled.
func (m *Machine) Poll() {
	for m.psr.Interrupts() {
		in, ok := m.next()
		if !ok {
			return
		}
		m.deliver(in)
	}
}

// WaitInt waits until an interrupt is pending and delivers it
// regardless of the interrupt enable bit.
func (m *Machine) WaitInt() {
	for {
		in, ok := m.next()
		if ok {
			m.deliver(in)
			return
		}
		select {
		case <-m.intrC:
		case <-m.halted:
			runtime.Goexit()
		}
	}
}

func (m *Machine) next() (intr, bool) {
	m.m.Lock()
	defer m.m.Unlock()

	if len(m.pending) == 0 {
		return intr{}, false
	}
	in := m.pending[0]
	m.pending = m.pending[1:]
	return in, true
}

func (m *Machine) deliver(in intr) {
	if in.dev < 0 || in.dev >= NumDevices {
		return
	}
	handler := m.IntVec[in.dev]
	if handler == nil {
		return
	}
	old := m.Trap()
	handler(in.dev, in.unit, in.status)
	m.psr = old
}

// StartClock starts the clock device that interrupts every
// ClockInterval until the machine halts. The interrupt status is the
// machine time in microseconds.
func (m *Machine) StartClock() {
	ticker := m.params.Clock.Ticker(m.params.ClockInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Post(DevClock, 0, int(m.Now()/time.Microsecond))
			case <-m.halted:
				return
			}
		}
	}()
}
